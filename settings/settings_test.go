package settings

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestReadAllConfig(t *testing.T) {
	// backup env
	envs := os.Environ()
	os.Clearenv()

	ResetSettings()
	require.Equal(t, "0.0.0.0", Settings.Listen.Host)
	require.Equal(t, 4000, Settings.Listen.Port)
	require.Equal(t, "hash", Settings.Pipeline.Backend)
	require.Equal(t, uint32(1_000_000_000), Settings.Pipeline.MaxValue)
	require.Equal(t, 10*time.Second, Settings.Stats.Interval)
	require.Equal(t, "numbers.log", Sink.Path)

	os.Setenv("NL__PIPELINE__BACKEND", "bitmap")
	os.Setenv("NL__PIPELINE__MAX_VALUE", "1000")
	os.Setenv("NL__STATS__INTERVAL", "250ms")
	ResetSettings()
	require.Equal(t, "bitmap", Pipeline.Backend)
	require.Equal(t, uint32(1000), Pipeline.MaxValue)
	require.Equal(t, 250*time.Millisecond, Stats.Interval)
	require.Equal(t, 5000, Pipeline.IngestQueueSize)

	os.Unsetenv("NL__PIPELINE__BACKEND")
	os.Setenv("NL.LISTEN.PORT", "4100")
	os.Setenv("NL.LISTEN.REQUIRE_FIXED_WIDTH", "true")
	os.Setenv("NL.SINK.FATAL_ON_ERROR", "TRUE")
	os.Setenv("NL.LOG_LEVEL", "debug")
	ResetSettings()
	require.Equal(t, "hash", Pipeline.Backend)
	require.Equal(t, 4100, Listen.Port)
	require.True(t, Listen.RequireFixedWidth)
	require.True(t, Sink.FatalOnError)
	require.Equal(t, zerolog.DebugLevel, Logger.GetLevel())
	require.Equal(t, uint32(1000), Pipeline.MaxValue)

	// restore variables
	os.Clearenv()
	for _, e := range envs {
		pair := strings.SplitN(e, "=", 2)
		os.Setenv(pair[0], pair[1])
	}
	ResetSettings()
}

func TestEnvKey(t *testing.T) {
	require.Equal(t, "pipeline.max_value", envKey("NL__PIPELINE__MAX_VALUE"))
	require.Equal(t, "listen.host", envKey("NL.LISTEN.HOST"))
	require.Equal(t, "metrics_addr", envKey("NL__METRICS_ADDR"))
}

func TestTryLog(t *testing.T) {
	ch := make(chan []byte, 1)
	require.True(t, TryLog(ch, []byte("first")))
	require.False(t, TryLog(ch, []byte("second")))
	require.Equal(t, []byte("first"), <-ch)
}
