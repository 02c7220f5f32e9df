/*
Package dedupe contains the engine that decides if a submitted number is unique.

All connections submit into one bounded queue. A single goroutine drains it in arrival order,
tests each value against a membership store and forwards only first seen values, formatted as
9 digit zero padded records, to the log sink queue.

Nothing but the engine goroutine touches the store, so no locking is needed around it.
Counters are atomics so readers never contend with the engine.

Both queues block when full. A slow sink therefore stalls the engine, which in turn stalls the
connections submitting to it. Values are never dropped.
*/
package dedupe
