package cmd

import (
	"testing"
	"time"

	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
	"github.com/stretchr/testify/require"
)

func TestApplyServeFlags(t *testing.T) {
	defer st.ResetSettings()
	st.ResetSettings()

	err := serveCmd.ParseFlags([]string{"--port", "4100", "-b", "bitmap", "--interval", "2s", "--fixed-width"})
	require.NoError(t, err)
	require.NoError(t, applyServeFlags(serveCmd))

	require.Equal(t, 4100, st.Listen.Port)
	require.Equal(t, "bitmap", st.Pipeline.Backend)
	require.Equal(t, 2*time.Second, st.Stats.Interval)
	require.True(t, st.Listen.RequireFixedWidth)
	// untouched flags keep the environment value
	require.Equal(t, "0.0.0.0", st.Listen.Host)
	require.Equal(t, "numbers.log", st.Sink.Path)
	require.Equal(t, uint32(1_000_000_000), st.Pipeline.MaxValue)
}
