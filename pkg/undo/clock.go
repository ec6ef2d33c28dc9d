package undo

import "time"

// Clock abstracts the passage of time so undo grouping can be tested
// deterministically, per spec.md §9's "mutable global time source (for
// tests)" note. No example repo in the retrieved pack ships a reusable
// clock package, so this one is hand-rolled against stdlib time (see
// DESIGN.md).
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
