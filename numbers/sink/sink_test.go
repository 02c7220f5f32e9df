package sink

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type failingWriter struct {
	closed bool
}

func (w *failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func (w *failingWriter) Close() error {
	w.closed = true
	return nil
}

func waitDone(t *testing.T, s *Sink) {
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sink did not stop")
	}
}

func TestSinkWritesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbers.log")
	s, err := Open(path, false)
	require.NoError(t, err)

	in := make(chan string, 10)
	go s.Run(in)
	in <- "000000009"
	in <- "000000042"
	in <- "000000001"
	close(in)
	waitDone(t, s)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "000000009\n000000042\n000000001\n", string(raw))
	require.Equal(t, uint64(3), s.Written())
	require.False(t, s.Failed())
}

func TestSinkTruncatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbers.log")
	require.NoError(t, os.WriteFile(path, []byte("left over from last run\n"), 0o644))

	s, err := Open(path, false)
	require.NoError(t, err)
	in := make(chan string, 1)
	go s.Run(in)
	in <- "000000007"
	close(in)
	waitDone(t, s)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "000000007\n", string(raw))
}

func TestSinkFlushesWhenIdle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbers.log")
	s, err := Open(path, false)
	require.NoError(t, err)
	in := make(chan string)
	go s.Run(in)
	in <- "000000123"

	// queue is empty so the record must reach the file without closing the sink
	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(path)
		return err == nil && string(raw) == "000000123\n"
	}, 2*time.Second, 10*time.Millisecond)

	close(in)
	waitDone(t, s)
}

func TestSinkOpenError(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "numbers.log"), false)
	require.Error(t, err)
}

func TestSinkKeepsDrainingAfterFailure(t *testing.T) {
	w := &failingWriter{}
	s := New(w, "failing", false)
	// unbuffered so every send waits on the sink
	in := make(chan string)
	go s.Run(in)

	sent := make(chan struct{})
	go func() {
		// more than the bufio buffer so a write reaches the failing writer
		for i := 0; i < 1000; i++ {
			in <- "000000000000000000000000000000000000000000000000000000000000"
		}
		close(sent)
	}()
	select {
	case <-sent:
	case <-time.After(5 * time.Second):
		t.Fatal("producer stalled on a failed sink")
	}
	close(in)
	waitDone(t, s)
	require.True(t, s.Failed())
	require.True(t, w.closed)
}

func TestSinkFatalOnError(t *testing.T) {
	called := make(chan error, 1)
	orig := fatal
	fatal = func(path string, err error) { called <- err }
	defer func() { fatal = orig }()

	s := New(&failingWriter{}, "failing", true)
	in := make(chan string, 1)
	go s.Run(in)
	in <- "000000001"
	close(in)
	waitDone(t, s)

	select {
	case err := <-called:
		require.EqualError(t, err, "disk full")
	default:
		t.Fatal("fatal handler was not called")
	}
}
