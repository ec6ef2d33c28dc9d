// Package otclient implements the three-state client protocol that keeps a
// local replica synchronized with a server under Operational Transformation:
// Synchronized, AwaitingConfirm(op) and AwaitingWithBuffer(op, buffer).
//
// It is the generalization of the teacher's pkg/ot.Client (itself modeled on
// ot.js's Client) into its own package, driven by the exact transition table
// the collaborative editor's protocol specifies rather than ot.js's.
package otclient

import (
	"errors"
	"fmt"

	"github.com/coreseekdev/mdpad/pkg/ot"
)

// State identifies which of the three synchronization states the client is
// in.
type State int

const (
	// Synchronized means no operation is outstanding.
	Synchronized State = iota
	// AwaitingConfirm means one operation has been sent and not yet
	// acknowledged.
	AwaitingConfirm
	// AwaitingWithBuffer means one operation is in flight and further
	// local edits have been composed into a buffer behind it.
	AwaitingWithBuffer
)

func (s State) String() string {
	switch s {
	case Synchronized:
		return "synchronized"
	case AwaitingConfirm:
		return "awaiting-confirm"
	case AwaitingWithBuffer:
		return "awaiting-with-buffer"
	default:
		return "unknown"
	}
}

// ErrInvariantViolated signals that the algebra or the peer broke a
// synchronization invariant (mismatched revision, inapplicable operation,
// post-transform composition inequality). It is fatal: callers must stop
// feeding the Client and reconstruct it, per spec.md §7.
var ErrInvariantViolated = errors.New("otclient: synchronization invariant violated")

// Client drives the OT state machine for a single document replica. It
// owns the replica and revision counter; all mutation happens through
// ApplyLocal, ApplyServer and ServerAck — this matches the single-owner
// discipline the teacher's pkg/session.SimpleSession uses around its
// document.
//
// Client is not safe for concurrent use; callers must serialize access
// themselves (see pkg/mdpad's dispatch loop, which does exactly that).
type Client struct {
	state    State
	revision int
	document string

	sent   *ot.Operation // the in-flight operation, nil when Synchronized
	buffer *ot.Operation // composed local edits behind sent, nil unless AwaitingWithBuffer
}

// New creates a Client in the Synchronized state with an empty replica at
// revision 0. Use Reset to adopt a server snapshot.
func New() *Client {
	return &Client{state: Synchronized}
}

// State reports the current synchronization state.
func (c *Client) State() State { return c.state }

// Revision reports the highest server revision reflected in Document().
func (c *Client) Revision() int { return c.revision }

// Document returns the current replica. Safe to call at any time; it is an
// immutable snapshot of the string at the moment of the call.
func (c *Client) Document() string { return c.document }

// Reset discards all in-flight/buffered state and adopts document/revision
// as ground truth. Used at construction, on connect, and after a
// reconnect's fresh snapshot (spec.md §4.5): any operation that was
// in flight and not acknowledged is simply dropped, by design.
func (c *Client) Reset(document string, revision int) {
	c.state = Synchronized
	c.revision = revision
	c.document = document
	c.sent = nil
	c.buffer = nil
}

// ApplyLocal folds a locally constructed operation into the state machine.
// It always applies op to the replica immediately — the caller's return
// value reflects the edit synchronously, per spec.md §5 — and reports
// whether op (or its composed form) must be sent to the server right now.
//
// Returns the operation to dispatch over the wire, or nil if the state
// machine is buffering (no send should happen until the in-flight
// operation is acknowledged).
func (c *Client) ApplyLocal(op *ot.Operation) (toSend *ot.Operation, err error) {
	newDoc, err := op.Apply(c.document)
	if err != nil {
		return nil, fmt.Errorf("%w: local operation does not apply to replica: %v", ErrInvariantViolated, err)
	}

	switch c.state {
	case Synchronized:
		c.state = AwaitingConfirm
		c.sent = op
		c.document = newDoc
		return op, nil

	case AwaitingConfirm:
		c.state = AwaitingWithBuffer
		c.buffer = op
		c.document = newDoc
		return nil, nil

	case AwaitingWithBuffer:
		composed, cerr := ot.Compose(c.buffer, op)
		if cerr != nil {
			return nil, fmt.Errorf("%w: could not compose into buffer: %v", ErrInvariantViolated, cerr)
		}
		c.buffer = composed
		c.document = newDoc
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unknown state %v", ErrInvariantViolated, c.state)
	}
}

// ApplyServer folds a remote operation broadcast at the given revision into
// the state machine. revision must equal the client's current revision
// (the server operation is the next one the client hasn't seen); anything
// else is an invariant violation. Returns the transformed operation that
// was actually applied to the replica, for callers that need to emit a
// `change` event carrying it.
func (c *Client) ApplyServer(revision int, op *ot.Operation) (applied *ot.Operation, err error) {
	if revision != c.revision {
		return nil, fmt.Errorf("%w: server operation at revision %d, client at %d", ErrInvariantViolated, revision, c.revision)
	}

	switch c.state {
	case Synchronized:
		applied = op

	case AwaitingConfirm:
		sentPrime, opPrime, terr := ot.Transform(c.sent, op)
		if terr != nil {
			return nil, fmt.Errorf("%w: transform against in-flight operation failed: %v", ErrInvariantViolated, terr)
		}
		c.sent = sentPrime
		applied = opPrime

	case AwaitingWithBuffer:
		sentPrime, op1, terr := ot.Transform(c.sent, op)
		if terr != nil {
			return nil, fmt.Errorf("%w: transform against in-flight operation failed: %v", ErrInvariantViolated, terr)
		}
		bufferPrime, op2, terr := ot.Transform(c.buffer, op1)
		if terr != nil {
			return nil, fmt.Errorf("%w: transform against buffered operation failed: %v", ErrInvariantViolated, terr)
		}
		c.sent = sentPrime
		c.buffer = bufferPrime
		applied = op2

	default:
		return nil, fmt.Errorf("%w: unknown state %v", ErrInvariantViolated, c.state)
	}

	newDoc, aerr := applied.Apply(c.document)
	if aerr != nil {
		return nil, fmt.Errorf("%w: transformed server operation does not apply to replica: %v", ErrInvariantViolated, aerr)
	}
	c.document = newDoc
	c.revision++
	return applied, nil
}

// ServerAck folds a server acknowledgment of the in-flight operation into
// the state machine. Returns the buffered operation to dispatch next, or
// nil when there was nothing buffered (the client returns to
// Synchronized).
func (c *Client) ServerAck() (toSend *ot.Operation, err error) {
	switch c.state {
	case AwaitingConfirm:
		c.revision++
		c.state = Synchronized
		c.sent = nil
		return nil, nil

	case AwaitingWithBuffer:
		c.revision++
		c.state = AwaitingConfirm
		c.sent = c.buffer
		c.buffer = nil
		return c.sent, nil

	default:
		return nil, fmt.Errorf("%w: serverAck received while %v", ErrInvariantViolated, c.state)
	}
}

// InFlight returns the operation currently sent and unacknowledged, or nil
// if there is none.
func (c *Client) InFlight() *ot.Operation { return c.sent }

// Buffered returns the operation composed behind the in-flight one, or nil
// if the client is not in AwaitingWithBuffer.
func (c *Client) Buffered() *ot.Operation { return c.buffer }
