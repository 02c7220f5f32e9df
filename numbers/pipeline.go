/*
Package numbers wires the dedupe pipeline together:

	connections -> [ingest queue] -> dedupe engine -> [sink queue] -> numbers log
	                                      |
	                                  counters -> stats reporter
*/
package numbers

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/counters"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/dedupe"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/membership"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/report"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/sink"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
)

type Config struct {
	Backend         string
	MaxValue        uint32
	IngestQueueSize int
	SinkQueueSize   int
	LogPath         string
	FatalOnError    bool
	StatsInterval   time.Duration
	// where report lines are printed, stdout when nil
	StatsOut io.Writer
	// optional rotating copy of report lines
	StatsFileLog chan []byte
}

// ConfigFromSettings builds a pipeline config from the loaded settings.
func ConfigFromSettings() Config {
	return Config{
		Backend:         st.Pipeline.Backend,
		MaxValue:        st.Pipeline.MaxValue,
		IngestQueueSize: st.Pipeline.IngestQueueSize,
		SinkQueueSize:   st.Pipeline.SinkQueueSize,
		LogPath:         st.Sink.Path,
		FatalOnError:    st.Sink.FatalOnError,
		StatsInterval:   st.Stats.Interval,
		StatsOut:        os.Stdout,
		StatsFileLog:    st.ChLogReport,
	}
}

var ErrInvalidQueueSize = errors.New("queue sizes must not be negative")
var ErrInvalidInterval = errors.New("stats interval must be positive")

type Pipeline struct {
	counters *counters.Counters
	engine   *dedupe.Engine
	sink     *sink.Sink
	sinkQ    chan string
	reporter *report.Reporter
	cancel   context.CancelFunc
}

// NewPipeline validates the config, creates the membership store and truncates the numbers log.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.IngestQueueSize < 0 || cfg.SinkQueueSize < 0 {
		return nil, ErrInvalidQueueSize
	}
	if cfg.StatsInterval <= 0 {
		return nil, ErrInvalidInterval
	}
	store, err := membership.New(cfg.Backend, cfg.MaxValue)
	if err != nil {
		return nil, err
	}
	s, err := sink.Open(cfg.LogPath, cfg.FatalOnError)
	if err != nil {
		return nil, err
	}
	out := cfg.StatsOut
	if out == nil {
		out = os.Stdout
	}
	ctrs := counters.New()
	sinkQ := make(chan string, cfg.SinkQueueSize)
	st.Logger.Info().Str("backend", cfg.Backend).Uint32("max_value", cfg.MaxValue).Str("file", cfg.LogPath).
		Int("ingest_queue", cfg.IngestQueueSize).Int("sink_queue", cfg.SinkQueueSize).Msg("created numbers pipeline")
	return &Pipeline{
		counters: ctrs,
		engine:   dedupe.New(store, ctrs, cfg.IngestQueueSize, sinkQ),
		sink:     s,
		sinkQ:    sinkQ,
		reporter: report.New(ctrs, cfg.StatsInterval, out, cfg.StatsFileLog),
	}, nil
}

// Start launches the engine, sink and reporter goroutines.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.sink.Run(p.sinkQ)
	go p.engine.Run()
	go p.reporter.Run(ctx)
}

// Submit forwards a validated value to the engine, blocking while the ingest queue is full.
func (p *Pipeline) Submit(v uint32) {
	p.engine.Submit(v)
}

func (p *Pipeline) Counters() *counters.Counters {
	return p.counters
}

// QueueDepths reports how many items wait in each queue.
func (p *Pipeline) QueueDepths() map[string]int {
	return map[string]int{
		"ingest": p.engine.Depth(),
		"sink":   len(p.sinkQ),
	}
}

// SinkFailed reports whether the numbers log has stopped being written.
func (p *Pipeline) SinkFailed() bool {
	return p.sink.Failed()
}

// Close stops the reporter, processes everything already queued and closes the numbers log.
// No Submit may be in progress or follow.
func (p *Pipeline) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	p.engine.Close()
	<-p.engine.Done()
	<-p.sink.Done()
}
