package numbers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/membership"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) Config {
	return Config{
		Backend:         backend,
		MaxValue:        1_000_000,
		IngestQueueSize: 16,
		SinkQueueSize:   16,
		LogPath:         filepath.Join(t.TempDir(), "numbers.log"),
		StatsInterval:   time.Hour,
		StatsOut:        &bytes.Buffer{},
	}
}

func readLines(t *testing.T, path string) []string {
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	s := strings.TrimRight(string(raw), "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

func TestPipelineSingleSubmitter(t *testing.T) {
	for _, backend := range membership.Backends() {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			p, err := NewPipeline(cfg)
			require.NoError(t, err)
			p.Start(context.Background())

			for _, v := range []uint32{9, 9, 42, 9} {
				p.Submit(v)
			}
			p.Close()

			raw, err := os.ReadFile(cfg.LogPath)
			require.NoError(t, err)
			require.Equal(t, "000000009\n000000042\n", string(raw))
			require.Equal(t, uint64(2), p.Counters().Unique())
			require.Equal(t, uint64(2), p.Counters().Duplicate())
			require.False(t, p.SinkFailed())
		})
	}
}

func TestPipelineConcurrentDisjointRanges(t *testing.T) {
	for _, backend := range membership.Backends() {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			p, err := NewPipeline(cfg)
			require.NoError(t, err)
			p.Start(context.Background())

			var wg sync.WaitGroup
			for _, r := range [][2]uint32{{0, 500}, {500, 1000}} {
				wg.Add(1)
				go func(from, to uint32) {
					defer wg.Done()
					for v := from; v < to; v++ {
						p.Submit(v)
					}
				}(r[0], r[1])
			}
			wg.Wait()
			p.Close()

			require.Equal(t, uint64(1000), p.Counters().Unique())
			require.Equal(t, uint64(0), p.Counters().Duplicate())

			lines := readLines(t, cfg.LogPath)
			require.Len(t, lines, 1000)
			sort.Strings(lines)
			for i, line := range lines {
				require.Equal(t, fmt.Sprintf("%09d", i), line)
			}
		})
	}
}

// the log holds exactly the values first seen, each once, whatever the submitters overlap
func TestPipelineLogFidelity(t *testing.T) {
	cfg := testConfig(t, membership.BackendBitmap)
	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	p.Start(context.Background())

	const submitters = 6
	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(offset uint32) {
			defer wg.Done()
			// overlapping ranges with every value repeated
			for v := offset * 100; v < offset*100+300; v++ {
				p.Submit(v)
				p.Submit(v)
			}
		}(uint32(i))
	}
	wg.Wait()
	p.Close()

	// ranges cover [0, 800)
	lines := readLines(t, cfg.LogPath)
	require.Len(t, lines, 800)
	seen := map[string]bool{}
	for _, line := range lines {
		require.Len(t, line, 9)
		require.False(t, seen[line], "duplicate line %s", line)
		seen[line] = true
	}
	require.Equal(t, uint64(800), p.Counters().Unique())
	require.Equal(t, uint64(submitters*300*2-800), p.Counters().Duplicate())
}

func TestPipelineBadConfig(t *testing.T) {
	cfg := testConfig(t, "nope")
	_, err := NewPipeline(cfg)
	require.ErrorIs(t, err, membership.ErrUnknownBackend)

	cfg = testConfig(t, membership.BackendHash)
	cfg.MaxValue = 0
	_, err = NewPipeline(cfg)
	require.ErrorIs(t, err, membership.ErrInvalidDomain)

	cfg = testConfig(t, membership.BackendHash)
	cfg.SinkQueueSize = -1
	_, err = NewPipeline(cfg)
	require.ErrorIs(t, err, ErrInvalidQueueSize)

	cfg = testConfig(t, membership.BackendHash)
	cfg.StatsInterval = 0
	_, err = NewPipeline(cfg)
	require.ErrorIs(t, err, ErrInvalidInterval)

	cfg = testConfig(t, membership.BackendHash)
	cfg.LogPath = filepath.Join(t.TempDir(), "no", "such", "dir", "numbers.log")
	_, err = NewPipeline(cfg)
	require.Error(t, err)
}

func TestPipelineQueueDepths(t *testing.T) {
	p, err := NewPipeline(testConfig(t, membership.BackendHash))
	require.NoError(t, err)
	// not started, so submissions stay queued
	p.Submit(1)
	p.Submit(2)
	require.Equal(t, map[string]int{"ingest": 2, "sink": 0}, p.QueueDepths())
	p.Start(context.Background())
	p.Close()
	require.Equal(t, map[string]int{"ingest": 0, "sink": 0}, p.QueueDepths())
}
