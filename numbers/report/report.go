// Package report periodically prints how many numbers arrived since the previous report.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/numbers/counters"
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/prom"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
)

type Report struct {
	DeltaUnique    uint64 `json:"delta_unique"`
	DeltaDuplicate uint64 `json:"delta_duplicate"`
	UniqueTotal    uint64 `json:"unique_total"`
}

func (r Report) String() string {
	return fmt.Sprintf("Received %d unique numbers, %d duplicates. Unique total: %d",
		r.DeltaUnique, r.DeltaDuplicate, r.UniqueTotal)
}

type Reporter struct {
	counters *counters.Counters
	interval time.Duration
	out      io.Writer
	// optional copy of each line, e.g. settings.ChLogReport
	fileLog chan []byte
	last    counters.Snapshot
}

func New(ctrs *counters.Counters, interval time.Duration, out io.Writer, fileLog chan []byte) *Reporter {
	return &Reporter{
		counters: ctrs,
		interval: interval,
		out:      out,
		fileLog:  fileLog,
	}
}

// Sample reads the counters and returns the change since the previous sample.
func (r *Reporter) Sample() Report {
	now := r.counters.Snapshot()
	rep := Report{
		DeltaUnique:    now.Unique - r.last.Unique,
		DeltaDuplicate: now.Duplicate - r.last.Duplicate,
		UniqueTotal:    now.Unique,
	}
	r.last = now
	return rep
}

// Emit samples the counters and writes one report line.
func (r *Reporter) Emit() Report {
	rep := r.Sample()
	line := rep.String()
	prom.NumbersUniqueTotal.Set(float64(rep.UniqueTotal))
	if _, err := fmt.Fprintln(r.out, line); err != nil {
		st.Logger.Warn().Err(err).Msg("could not write stats report")
	}
	if r.fileLog != nil && !st.TryLog(r.fileLog, []byte(line)) {
		st.Logger.Debug().Msg("report file log is behind, dropped line")
	}
	return rep
}

// Run emits a report every interval until ctx is done.
// The first report is only emitted after a full interval.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	st.Logger.Debug().Dur("interval", r.interval).Msg("stats reporter starting")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Emit()
		}
	}
}
