// Package sink persists unique numbers to the numbers log from a single goroutine.
package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/prom"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
)

// called when a write fails and the sink is configured to be fatal
var fatal = func(path string, err error) {
	st.Logger.Fatal().Err(err).Str("file", path).Msg("numbers log failed, exiting")
}

// Sink writes one record per line in the order records are received.
type Sink struct {
	path         string
	file         io.WriteCloser
	w            *bufio.Writer
	fatalOnError bool
	failed       atomic.Bool
	written      atomic.Uint64
	done         chan struct{}
}

// Open creates or truncates the file at path.
func Open(path string, fatalOnError bool) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create numbers log '%s': %w", path, err)
	}
	return New(f, path, fatalOnError), nil
}

// New wraps an already opened destination, name is used for logging only.
func New(file io.WriteCloser, name string, fatalOnError bool) *Sink {
	return &Sink{
		path:         name,
		file:         file,
		w:            bufio.NewWriter(file),
		fatalOnError: fatalOnError,
		done:         make(chan struct{}),
	}
}

// Run consumes records until in is closed.
// Output is flushed whenever the queue is empty so the file is complete while idle.
// After a write failure records are still drained but discarded, so producers never stall on a dead sink.
func (s *Sink) Run(in <-chan string) {
	defer close(s.done)
	st.Logger.Debug().Str("file", s.path).Msg("numbers log sink starting")
	for rec := range in {
		if s.failed.Load() {
			prom.SinkDropped.Inc()
			continue
		}
		if err := s.write(rec); err != nil {
			s.fail(err)
			continue
		}
		if len(in) == 0 {
			if err := s.w.Flush(); err != nil {
				s.fail(err)
			}
		}
	}
	if !s.failed.Load() {
		if err := s.w.Flush(); err != nil {
			s.fail(err)
		}
	}
	if err := s.file.Close(); err != nil {
		st.Logger.Warn().Err(err).Str("file", s.path).Msg("could not close numbers log")
	}
	st.Logger.Info().Str("file", s.path).Uint64("written", s.written.Load()).Bool("failed", s.failed.Load()).Msg("numbers log sink stopped")
}

func (s *Sink) write(rec string) error {
	if _, err := s.w.WriteString(rec); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	s.written.Add(1)
	prom.SinkWritten.Inc()
	return nil
}

func (s *Sink) fail(err error) {
	s.failed.Store(true)
	prom.SinkErrors.Inc()
	if s.fatalOnError {
		fatal(s.path, err)
		return
	}
	st.Logger.Error().Err(err).Str("file", s.path).Msg("numbers log write failed, unique numbers will no longer be persisted")
}

// Failed reports whether the sink has stopped persisting records.
func (s *Sink) Failed() bool {
	return s.failed.Load()
}

// Written is the number of records accepted for writing.
func (s *Sink) Written() uint64 {
	return s.written.Load()
}

// Done is closed after Run has returned and the file is closed.
func (s *Sink) Done() <-chan struct{} {
	return s.done
}
