// Package queue implements the outbound operation queue and rate limiter
// described in spec.md §4.3: it paces and, on reconnect, replays pending
// operations so that at most one operation is ever in flight.
//
// The limiter wraps golang.org/x/time/rate the same way the teacher pack's
// apex-build-platform middleware wraps it for its IPRateLimiter — a single
// *rate.Limiter gated by Allow() rather than hand-rolled token
// bookkeeping.
package queue

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/coreseekdev/mdpad/pkg/ot"
)

// Entry is one pending outbound operation, per spec.md §3's "Outbound
// queue entry" data model.
type Entry struct {
	Operation  *ot.Operation
	EnqueuedAt time.Time
	Attempt    int
}

// Limits configures the rate limiter, a token bucket holding MaxBurst
// tokens and refilled one token per MinInterval: up to MaxBurst operations
// may fire back to back, after which dispatches are spaced MinInterval
// apart. BurstWindow is carried in the configuration but not used by the
// limiter.
type Limits struct {
	Enabled     bool
	MinInterval time.Duration
	MaxBurst    int
	BurstWindow time.Duration
}

// Queue orders and paces outbound operations. It does not itself compose
// operations together (that optimization, per spec.md §4.3, is off by
// default and lives at the call site if enabled); it only tracks FIFO
// order and gates dispatch through the rate limiter.
type Queue struct {
	limiter *rate.Limiter
	enabled bool
	entries []Entry
}

// New builds a Queue configured by lim. When lim.Enabled is false, Allow
// always reports true (no pacing).
func New(lim Limits) *Queue {
	q := &Queue{enabled: lim.Enabled}
	if !lim.Enabled {
		return q
	}
	var r rate.Limit
	if lim.MinInterval > 0 {
		r = rate.Every(lim.MinInterval)
	} else {
		r = rate.Inf
	}
	burst := lim.MaxBurst
	if burst <= 0 {
		burst = 1
	}
	q.limiter = rate.NewLimiter(r, burst)
	return q
}

// Allow reports whether an operation may be dispatched to the transport
// right now, consuming a token if so.
func (q *Queue) Allow() bool {
	if !q.enabled || q.limiter == nil {
		return true
	}
	return q.limiter.Allow()
}

// Enqueue appends op to the back of the queue.
func (q *Queue) Enqueue(op *ot.Operation, now time.Time) {
	q.entries = append(q.entries, Entry{Operation: op, EnqueuedAt: now})
}

// Peek returns the head entry without removing it, or false if empty.
func (q *Queue) Peek() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// Pop removes and returns the head entry, or false if empty.
func (q *Queue) Pop() (Entry, bool) {
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

// RetryHead increments the attempt counter on the head entry, used when a
// dispatch attempt fails transiently (e.g. the transport is mid-reconnect).
func (q *Queue) RetryHead() {
	if len(q.entries) == 0 {
		return
	}
	q.entries[0].Attempt++
}

// Len reports the current queue depth (getQueuedOperationCount in spec.md).
func (q *Queue) Len() int { return len(q.entries) }

// Drain removes and returns every queued entry in FIFO order, leaving the
// queue empty. Used on disconnect (the entries are dropped) and when a
// snapshot is adopted, to replay the entries against it (spec.md §4.5).
func (q *Queue) Drain() []Entry {
	out := q.entries
	q.entries = nil
	return out
}
