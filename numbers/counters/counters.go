// Package counters holds the running unique and duplicate totals shared between the dedupe
// engine, which increments them, and the readers that report on them.
package counters

import "sync/atomic"

type Counters struct {
	unique    atomic.Uint64
	duplicate atomic.Uint64
}

// Snapshot is a point in time read of both counters.
type Snapshot struct {
	Unique    uint64 `json:"unique"`
	Duplicate uint64 `json:"duplicate"`
}

func New() *Counters {
	return &Counters{}
}

func (c *Counters) MarkUnique() {
	c.unique.Add(1)
}

func (c *Counters) MarkDuplicate() {
	c.duplicate.Add(1)
}

func (c *Counters) Unique() uint64 {
	return c.unique.Load()
}

func (c *Counters) Duplicate() uint64 {
	return c.duplicate.Load()
}

// Snapshot loads each counter once. The pair is not read atomically together, so a value
// processed between the two loads may appear in only one of them.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{Unique: c.unique.Load(), Duplicate: c.duplicate.Load()}
}
