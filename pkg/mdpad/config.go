// Package mdpad is the top-level client facade: it wires pkg/ot,
// pkg/otclient, pkg/queue, pkg/reconnect, pkg/transport, pkg/document,
// pkg/undo and pkg/events into the single Client type an embedding
// application talks to, per spec.md §6's external interface.
package mdpad

import "time"

// Config is the configuration surface spec.md §6 names.
type Config struct {
	// ServerURL is the WebSocket endpoint to dial. Required.
	ServerURL string
	// NoteID identifies the document to join. Required.
	NoteID string
	// Cookie carries the session credential forwarded in the connection
	// handshake.
	Cookie string

	// OperationTimeout bounds how long the client waits in
	// AwaitingConfirm for an acknowledgment before routing through the
	// reconnection controller.
	OperationTimeout time.Duration

	RateLimit RateLimitConfig
	Reconnect ReconnectConfig

	// TrackUndo enables the undo/redo history. Defaults to false, like
	// RateLimit.Enabled and Reconnect.Enabled below: an explicit opt-in,
	// not defaulted in withDefaults.
	TrackUndo bool
	// UndoMaxSize bounds the undo/redo stacks; 0 means unlimited.
	UndoMaxSize int
	// UndoGroupInterval is the window within which consecutive compatible
	// edits merge into one undo step.
	UndoGroupInterval time.Duration
}

// RateLimitConfig mirrors queue.Limits at the configuration surface.
type RateLimitConfig struct {
	Enabled     bool
	MinInterval time.Duration
	MaxBurst    int
	BurstWindow time.Duration
}

// ReconnectConfig mirrors reconnect.Config at the configuration surface.
type ReconnectConfig struct {
	Enabled       bool
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// withDefaults fills zero-valued optional fields with spec-reasonable
// defaults, mirroring the teacher's pattern of a single defaulting pass
// at construction rather than scattering nil-checks through the client.
func (c Config) withDefaults() Config {
	if c.OperationTimeout == 0 {
		c.OperationTimeout = 10 * time.Second
	}
	if c.UndoGroupInterval == 0 {
		c.UndoGroupInterval = 500 * time.Millisecond
	}
	if !c.Reconnect.Enabled {
		// Leave as configured; Enabled is an explicit opt-in, not defaulted.
	} else {
		if c.Reconnect.MaxAttempts == 0 {
			c.Reconnect.MaxAttempts = 5
		}
		if c.Reconnect.InitialDelay == 0 {
			c.Reconnect.InitialDelay = 500 * time.Millisecond
		}
		if c.Reconnect.MaxDelay == 0 {
			c.Reconnect.MaxDelay = 30 * time.Second
		}
		if c.Reconnect.BackoffFactor == 0 {
			c.Reconnect.BackoffFactor = 2
		}
	}
	return c
}
