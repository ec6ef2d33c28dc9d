package mdpad

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreseekdev/mdpad/pkg/document"
	"github.com/coreseekdev/mdpad/pkg/events"
	"github.com/coreseekdev/mdpad/pkg/logging"
	"github.com/coreseekdev/mdpad/pkg/ot"
	"github.com/coreseekdev/mdpad/pkg/otclient"
	"github.com/coreseekdev/mdpad/pkg/queue"
	"github.com/coreseekdev/mdpad/pkg/reconnect"
	"github.com/coreseekdev/mdpad/pkg/transport"
)

// batchState holds the accumulator and scratch replica startBatch()
// opens, per spec.md §4.7.
type batchState struct {
	active      bool
	accumulator *ot.Operation
	scratch     string
}

// Client is the single entry point an embedding application uses to join
// a document, edit it, and observe remote edits and connection state.
// It owns exactly one otclient.Client, one outbound queue, one undo
// history and one transport session; all of it is touched only while
// holding mu, which is the single-consumer discipline spec.md §5
// requires — the dispatch goroutine and every public method serialize
// through the same lock rather than a channel-fed event loop, since
// Go's mutexes give the same exclusion without forcing every accessor
// (getDocument, getLine) through a round trip.
//
// Grounded on the teacher's pkg/session.SimpleSession for the
// single-owner-document shape, generalized to front pkg/otclient instead
// of owning OT state directly.
type Client struct {
	cfg Config

	mu         sync.Mutex
	oc         *otclient.Client
	outbound   *queue.Queue
	undo       *undoManager
	emitter    *events.Emitter
	session    *transport.Session
	reconnectC *reconnect.Controller

	clientID      string
	permission    Permission
	authenticated bool
	isOwner       bool
	connected     bool
	errored       bool

	batch batchState

	// opTimer bounds how long the client waits in otclient.AwaitingConfirm
	// (or AwaitingWithBuffer) for a server ack before treating the
	// transport as broken, per spec.md §5/§7. Armed whenever an operation
	// becomes the one in flight, disarmed on ack or disconnect.
	opTimer *time.Timer

	ready chan error
}

// New constructs a Client. Connect must be called before any document
// primitive will succeed.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:        cfg,
		oc:         otclient.New(),
		outbound:   queue.New(toQueueLimits(cfg.RateLimit)),
		emitter:    events.New(),
		clientID:   transport.NewClientID(),
		permission: PermissionLocked,
	}
	c.undo = newUndoManager(cfg)
	c.reconnectC = reconnect.New(toReconnectConfig(cfg.Reconnect), nil)
	return c
}

func toQueueLimits(r RateLimitConfig) queue.Limits {
	return queue.Limits{Enabled: r.Enabled, MinInterval: r.MinInterval, MaxBurst: r.MaxBurst, BurstWindow: r.BurstWindow}
}

func toReconnectConfig(r ReconnectConfig) reconnect.Config {
	return reconnect.Config{Enabled: r.Enabled, MaxAttempts: r.MaxAttempts, InitialDelay: r.InitialDelay, MaxDelay: r.MaxDelay, BackoffFactor: r.BackoffFactor}
}

// Seed adopts document as the replica without a live transport
// connection, marking the client as if freely editable. Useful for
// tooling and examples that only need the document surface and
// undo/redo, never a server round trip.
func (c *Client) Seed(document string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.oc.Reset(document, 0)
	c.undo.history.Clear()
	c.permission = PermissionFreely
	c.connected = true
}

// On subscribes fn to event, returning an unsubscribe function. Event
// names are the ones spec.md §6 lists: connect, disconnect, ready,
// error, document, change, refresh, permission, delete, users,
// user:status, user:left, cursor:focus|activity|blur,
// reconnect:scheduled|attempting|success|error|failed, undo, redo.
func (c *Client) On(event string, fn func(payload any)) (off func()) {
	return c.emitter.On(event, fn)
}

// Connect dials the server, joins the configured document, and blocks
// until the initial snapshot arrives or the handshake fails.
func (c *Client) Connect(ctx context.Context) error {
	sess, err := transport.Dial(ctx, c.cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("mdpad: dial: %w", err)
	}

	c.mu.Lock()
	c.session = sess
	c.ready = make(chan error, 1)
	c.mu.Unlock()

	go c.dispatchLoop(sess)

	join, err := transport.NewEnvelope(transport.MsgJoin, transport.JoinPayload{
		DocumentID: c.cfg.NoteID,
		ClientID:   c.clientID,
		Token:      c.cfg.Cookie,
	})
	if err != nil {
		return err
	}
	if err := sess.Send(join); err != nil {
		return fmt.Errorf("mdpad: send join: %w", err)
	}

	select {
	case err := <-c.ready:
		if err != nil {
			return err
		}
		c.emitter.Emit("connect", nil)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect closes the transport and cancels any scheduled reconnect.
// Idempotent. Pending outbound entries are dropped; reason is forwarded
// to the `disconnect` event.
func (c *Client) Disconnect(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked(reason)
}

func (c *Client) disconnectLocked(reason string) {
	if !c.connected {
		return
	}
	c.connected = false
	c.disarmOperationTimeoutLocked()
	c.reconnectC.Cancel()
	if c.session != nil {
		c.session.Close()
	}
	dropped := c.outbound.Drain()
	if len(dropped) > 0 {
		logging.Debug("mdpad: dropped %d queued operations on disconnect", len(dropped))
	}
	c.emitter.Emit("disconnect", reason)
}

// Reconnect forces an immediate reconnection attempt, resetting the
// backoff controller's attempt counter.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	c.reconnectC.Reconnect()
	c.mu.Unlock()
	return c.Connect(ctx)
}

// GetDocument returns an immutable snapshot of the current replica.
func (c *Client) GetDocument() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.oc.Document()
}

// GetLine returns the content of line i (0-based), excluding its
// terminating newline.
func (c *Client) GetLine(i int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := splitLines(c.oc.Document())
	if i < 0 || i >= len(lines) {
		return "", ErrOutOfBounds
	}
	return lines[i], nil
}

// GetLines returns lines [from, to) (0-based, exclusive end).
func (c *Client) GetLines(from, to int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := splitLines(c.oc.Document())
	if from < 0 || to > len(lines) || from > to {
		return nil, ErrOutOfBounds
	}
	out := make([]string, to-from)
	copy(out, lines[from:to])
	return out, nil
}

func splitLines(doc string) []string {
	lines := []string{}
	start := 0
	runes := []rune(doc)
	for i, r := range runes {
		if r == '\n' {
			lines = append(lines, string(runes[start:i]))
			start = i + 1
		}
	}
	lines = append(lines, string(runes[start:]))
	return lines
}

// Insert inserts s at pos in the current replica.
func (c *Client) Insert(pos int, s string) error {
	return c.edit(func(doc string) (*ot.Operation, error) { return document.Insert(doc, pos, s) })
}

// Delete removes n runes at pos.
func (c *Client) Delete(pos, n int) error {
	return c.edit(func(doc string) (*ot.Operation, error) { return document.Delete(doc, pos, n) })
}

// Replace removes n runes at pos and inserts s in their place.
func (c *Client) Replace(pos, n int, s string) error {
	return c.edit(func(doc string) (*ot.Operation, error) { return document.Replace(doc, pos, n, s) })
}

// UpdateContent replaces the entire document with newText via a minimal
// diff-based operation.
func (c *Client) UpdateContent(newText string) error {
	return c.edit(func(doc string) (*ot.Operation, error) { return document.UpdateContent(doc, newText) })
}

// SetLine replaces line i's content with s.
func (c *Client) SetLine(i int, s string) error {
	return c.edit(func(doc string) (*ot.Operation, error) { return document.SetLine(doc, i, s) })
}

// InsertLine inserts a new line containing s before line i.
func (c *Client) InsertLine(i int, s string) error {
	return c.edit(func(doc string) (*ot.Operation, error) { return document.InsertLine(doc, i, s) })
}

// ReplaceRegex replaces the first match of pattern with replacement.
func (c *Client) ReplaceRegex(pattern, replacement string) error {
	return c.edit(func(doc string) (*ot.Operation, error) { return document.ReplaceRegex(doc, pattern, replacement) })
}

// ReplaceAllRegex replaces every match of pattern with replacement.
func (c *Client) ReplaceAllRegex(pattern, replacement string) error {
	return c.edit(func(doc string) (*ot.Operation, error) { return document.ReplaceAllRegex(doc, pattern, replacement) })
}

// edit runs build against the current effective document (the scratch
// replica while batching, the live replica otherwise), enforces
// canEdit(), and routes the resulting operation through the batch
// accumulator or directly through the state machine.
func (c *Client) edit(build func(doc string) (*ot.Operation, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !canEdit(c.permission, c.authenticated, c.isOwner) {
		return ErrPermissionDenied
	}
	if !c.connected && !c.batch.active && !c.cfg.Reconnect.Enabled {
		return ErrNotConnected
	}

	effectiveDoc := c.oc.Document()
	if c.batch.active {
		effectiveDoc = c.batch.scratch
	}

	op, err := build(effectiveDoc)
	if err != nil {
		return err
	}
	if op.IsNoop() {
		return nil
	}

	if c.batch.active {
		newScratch, aerr := op.Apply(c.batch.scratch)
		if aerr != nil {
			return aerr
		}
		if c.batch.accumulator == nil {
			c.batch.accumulator = op
		} else {
			composed, cerr := ot.Compose(c.batch.accumulator, op)
			if cerr != nil {
				return cerr
			}
			c.batch.accumulator = composed
		}
		c.batch.scratch = newScratch
		return nil
	}

	return c.submitLocked(op)
}

// submitLocked folds op through the undo history and the OT state
// machine, and enqueues it for dispatch. Callers must hold mu.
func (c *Client) submitLocked(op *ot.Operation) error {
	preEdit := c.oc.Document()

	toSend, err := c.oc.ApplyLocal(op)
	if err != nil {
		c.errored = true
		c.emitter.Emit("error", err)
		return err
	}

	c.undo.push(op, preEdit)

	c.emitter.Emit("change", ChangeEvent{Type: "local", Operation: op})
	c.emitter.Emit("document", c.oc.Document())

	if toSend != nil {
		c.outbound.Enqueue(toSend, time.Now())
		c.armOperationTimeoutLocked()
		c.pumpOutboundLocked()
	}
	return nil
}

// armOperationTimeoutLocked (re)starts the operationTimeout timer: if it
// fires before the in-flight operation is acknowledged, the connection is
// treated as broken and handed to the reconnection controller, per
// spec.md §5 and §7. Callers must hold mu.
func (c *Client) armOperationTimeoutLocked() {
	c.disarmOperationTimeoutLocked()
	if c.cfg.OperationTimeout <= 0 {
		return
	}
	c.opTimer = time.AfterFunc(c.cfg.OperationTimeout, c.onOperationTimeout)
}

// disarmOperationTimeoutLocked cancels a pending operationTimeout timer, if
// any. Callers must hold mu.
func (c *Client) disarmOperationTimeoutLocked() {
	if c.opTimer != nil {
		c.opTimer.Stop()
		c.opTimer = nil
	}
}

// onOperationTimeout runs on its own goroutine when operationTimeout
// elapses without an ack. It is a no-op if the timer was disarmed or the
// state machine already returned to Synchronized in the meantime, and it
// does not double up with a reconnect loop already in flight.
func (c *Client) onOperationTimeout() {
	c.mu.Lock()
	if c.opTimer == nil {
		c.mu.Unlock()
		return
	}
	c.opTimer = nil
	if !c.connected || c.oc.State() == otclient.Synchronized {
		c.mu.Unlock()
		return
	}

	c.errored = true
	c.emitter.Emit("error", ErrOperationTimeout)
	reconnectEnabled := c.cfg.Reconnect.Enabled
	c.disconnectLocked("operation acknowledgment timed out")
	c.mu.Unlock()

	if reconnectEnabled {
		c.runReconnectLoop()
	}
}

// pumpOutboundLocked dispatches the head of the outbound queue over the
// transport if the rate limiter allows it. Only one operation is ever
// in flight (enforced by otclient.Client), so the queue holds at most
// the operations accumulated while AwaitingConfirm.
func (c *Client) pumpOutboundLocked() {
	if !c.connected || c.session == nil {
		return
	}
	entry, ok := c.outbound.Peek()
	if !ok {
		return
	}
	if !c.outbound.Allow() {
		return
	}
	c.outbound.Pop()

	env, err := transport.NewEnvelope(transport.MsgOperation, transport.OperationPayload{
		Revision:  c.oc.Revision(),
		Operation: entry.Operation.ToJSON(),
		ClientID:  c.clientID,
	})
	if err != nil {
		logging.Error("mdpad: encode operation: %v", err)
		return
	}
	if err := c.session.Send(env); err != nil {
		logging.Debug("mdpad: send operation failed, will ride through reconnect: %v", err)
	}
}

// StartBatch opens batch mode: subsequent edits accumulate into a single
// operation instead of being submitted individually.
func (c *Client) StartBatch() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.batch.active {
		return ErrBatchInProgress
	}
	c.batch = batchState{active: true, scratch: c.oc.Document()}
	return nil
}

// EndBatch submits the accumulated batch as a single operation.
func (c *Client) EndBatch() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.batch.active {
		return ErrNoBatchInProgress
	}
	acc := c.batch.accumulator
	c.batch = batchState{}
	if acc == nil || acc.IsNoop() {
		return nil
	}
	return c.submitLocked(acc)
}

// CancelBatch discards the accumulated batch without touching the live
// replica.
func (c *Client) CancelBatch() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.batch.active {
		return ErrNoBatchInProgress
	}
	c.batch = batchState{}
	return nil
}

// Undo pops the most recent undo entry and submits its inverse as a
// fresh local edit.
func (c *Client) Undo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.undo.history.Undo(func(op *ot.Operation) error { return c.submitLocked(op) })
	if err == nil {
		c.emitter.Emit("undo", nil)
	}
	return err
}

// Redo pops the most recent redo entry and submits it as a fresh local
// edit.
func (c *Client) Redo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.undo.history.Redo(func(op *ot.Operation) error { return c.submitLocked(op) })
	if err == nil {
		c.emitter.Emit("redo", nil)
	}
	return err
}

// ChangeEvent is the payload of the `change` event spec.md §6 names.
type ChangeEvent struct {
	Type      string // "local" or "remote"
	Operation *ot.Operation
}
