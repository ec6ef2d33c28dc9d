// Package events implements the synchronous subscription registry spec.md
// §9 calls for: callbacks keyed by event name, invoked in subscription
// order, with one callback's panic never affecting its siblings.
//
// No example repo in the pack ships a plain synchronous emitter of this
// shape — the closest relative, the teacher's pkg/session/pubsub.go, is
// channel-based (a Subscription per consumer, fed by goroutines), which
// fits a server fanning out to many readers. This client has exactly one
// reader per event (the embedding application) and spec.md explicitly
// requires in-order, in-call-stack delivery, so a channel indirection
// would add nothing; this is the stdlib-only exception noted in
// DESIGN.md.
package events

import "sync"

// Emitter is a thread-safe, synchronous multi-event pub/sub registry.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]func(any)
}

// New returns a ready-to-use Emitter.
func New() *Emitter {
	return &Emitter{listeners: make(map[string][]func(any))}
}

// On registers fn to run whenever event is emitted, returning an unsubscribe
// function.
func (e *Emitter) On(event string, fn func(payload any)) (off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners[event] = append(e.listeners[event], fn)
	idx := len(e.listeners[event]) - 1

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		fns := e.listeners[event]
		if idx < 0 || idx >= len(fns) || fns[idx] == nil {
			return
		}
		fns[idx] = nil
	}
}

// Emit invokes every listener registered for event, in registration order,
// with payload. A listener that panics is recovered so the remaining
// listeners still run.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.Lock()
	fns := append([]func(any){}, e.listeners[event]...)
	e.mu.Unlock()

	for _, fn := range fns {
		if fn == nil {
			continue
		}
		e.invoke(fn, payload)
	}
}

func (e *Emitter) invoke(fn func(any), payload any) {
	defer func() { _ = recover() }()
	fn(payload)
}
