package engine

import "sync/atomic"

// Sequencer hands out logical sequence numbers. Clock is the production
// implementation; tests may substitute a resettable one.
type Sequencer interface {
	Next() int64
	Current() int64
	Set(seq int64)
}

// Clock is a monotonic logical clock for command ordering.
//
// Every command is stamped with a strictly increasing seq from this clock,
// so replay reproduces the same order regardless of wall time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used for recovery to resume from the last journaled seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Set moves the clock to seq. The next call to Next returns seq+1.
func (c *Clock) Set(seq int64) {
	c.seq.Store(seq)
}
