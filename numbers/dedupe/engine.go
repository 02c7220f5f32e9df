package dedupe

import (
	"fmt"
	"sync"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/counters"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/membership"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/prom"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
)

// FormatRecord renders a value as a line of the numbers log (without line ending).
func FormatRecord(v uint32) string {
	return fmt.Sprintf("%09d", v)
}

// Engine is the single consumer of the ingest queue.
type Engine struct {
	store     membership.Store
	counters  *counters.Counters
	in        chan uint32
	out       chan<- string
	closeOnce sync.Once
	done      chan struct{}
}

// New creates an engine with an ingest queue of queueSize values.
// First seen records are sent to out, which is closed when the engine stops.
func New(store membership.Store, ctrs *counters.Counters, queueSize int, out chan<- string) *Engine {
	return &Engine{
		store:    store,
		counters: ctrs,
		in:       make(chan uint32, queueSize),
		out:      out,
		done:     make(chan struct{}),
	}
}

// Submit queues a value, blocking while the ingest queue is full.
// Must not be called after Close.
func (e *Engine) Submit(v uint32) {
	e.in <- v
}

// Process handles one value and reports whether it was seen for the first time.
// Sending the record may block while the sink queue is full.
func (e *Engine) Process(v uint32) bool {
	if !e.store.Insert(v) {
		e.counters.MarkDuplicate()
		prom.NumbersProcessed.WithLabelValues("duplicate").Inc()
		return false
	}
	e.counters.MarkUnique()
	prom.NumbersProcessed.WithLabelValues("unique").Inc()
	e.out <- FormatRecord(v)
	return true
}

// Run consumes the ingest queue until it is closed and drained.
func (e *Engine) Run() {
	defer close(e.done)
	defer close(e.out)
	st.Logger.Debug().Msg("dedupe engine starting")
	for v := range e.in {
		e.Process(v)
	}
	ev := st.Logger.Info()
	if sized, ok := e.store.(membership.Sized); ok {
		ev = ev.Int("entries", sized.Len())
	}
	ev.Msg("dedupe engine stopped")
}

// Close stops accepting values. Run returns once the queued values are processed.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.in) })
}

// Done is closed after Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Depth is the number of values waiting in the ingest queue.
func (e *Engine) Depth() int {
	return len(e.in)
}
