package mdpad

import (
	"context"
	"fmt"
	"time"

	"github.com/coreseekdev/mdpad/pkg/logging"
	"github.com/coreseekdev/mdpad/pkg/ot"
	"github.com/coreseekdev/mdpad/pkg/otclient"
	"github.com/coreseekdev/mdpad/pkg/reconnect"
	"github.com/coreseekdev/mdpad/pkg/transport"
)

// ReadyEvent is the payload of the `ready` event: the snapshot the
// session adapter just adopted.
type ReadyEvent struct {
	Document string
	Revision int
}

// dispatchLoop is the single consumer of inbound transport messages,
// per spec.md §5: every mutation of OT/undo/queue state happens here or
// in a public method, both serialized through mu.
func (c *Client) dispatchLoop(sess *transport.Session) {
	for env := range sess.Inbound() {
		c.handleEnvelope(env)
	}

	c.mu.Lock()
	wasConnected := c.connected
	reconnectEnabled := c.cfg.Reconnect.Enabled
	c.connected = false
	c.disarmOperationTimeoutLocked()
	c.mu.Unlock()

	if !wasConnected {
		return
	}
	c.emitter.Emit("disconnect", "transport closed")

	if reconnectEnabled {
		c.runReconnectLoop()
	}
}

// runReconnectLoop drives the backoff controller until a fresh Connect
// succeeds or the attempt budget is exhausted, surfacing each transition
// as a `reconnect:*` event per spec.md §6.
func (c *Client) runReconnectLoop() {
	c.reconnectC.Schedule(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return c.Connect(ctx)
	}, func(e reconnect.Event) {
		switch e.Kind {
		case reconnect.EventScheduled:
			c.emitter.Emit("reconnect:scheduled", e)
		case reconnect.EventAttempting:
			c.emitter.Emit("reconnect:attempting", e)
		case reconnect.EventSuccess:
			c.emitter.Emit("reconnect:success", e)
		case reconnect.EventError:
			c.emitter.Emit("reconnect:error", e)
		case reconnect.EventFailed:
			c.emitter.Emit("reconnect:failed", e)
		}
	})
}

func (c *Client) handleEnvelope(env *transport.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch env.Type {
	case transport.MsgWelcome:
		var p transport.WelcomePayload
		if env.Decode(&p) == nil && p.ClientID != "" {
			c.clientID = p.ClientID
		}

	case transport.MsgSnapshot:
		var p transport.SnapshotPayload
		if err := env.Decode(&p); err != nil {
			c.deliverReady(fmt.Errorf("mdpad: decode snapshot: %w", err))
			return
		}
		c.handleSnapshotLocked(p)

	case transport.MsgAck:
		var p transport.AckPayload
		if err := env.Decode(&p); err != nil {
			logging.Error("mdpad: decode ack: %v", err)
			return
		}
		toSend, err := c.oc.ServerAck()
		if err != nil {
			c.errored = true
			c.emitter.Emit("error", err)
			return
		}
		c.disarmOperationTimeoutLocked()
		if toSend != nil {
			c.outbound.Enqueue(toSend, time.Now())
			c.armOperationTimeoutLocked()
		}
		c.pumpOutboundLocked()

	case transport.MsgRemoteOperation:
		var p transport.RemoteOperationPayload
		if err := env.Decode(&p); err != nil {
			logging.Error("mdpad: decode remote operation: %v", err)
			return
		}
		op, err := ot.FromJSON(p.Operation)
		if err != nil {
			c.emitter.Emit("error", err)
			return
		}
		applied, err := c.oc.ApplyServer(p.Revision, op)
		if err != nil {
			c.errored = true
			c.emitter.Emit("error", err)
			return
		}
		if c.undo.enabled {
			if terr := c.undo.history.TransformAgainst(applied); terr != nil {
				c.errored = true
				c.emitter.Emit("error", terr)
				return
			}
		}
		c.emitter.Emit("change", ChangeEvent{Type: "remote", Operation: applied})
		c.emitter.Emit("document", c.oc.Document())

	case transport.MsgRefresh:
		var p transport.RefreshPayload
		if env.Decode(&p) == nil {
			if p.Permission != "" {
				c.permission = Permission(p.Permission)
			}
			c.isOwner = p.OwnerID != "" && p.OwnerID == c.clientID
			c.emitter.Emit("refresh", p)
		}

	case transport.MsgPermission:
		var p transport.PermissionPayload
		if env.Decode(&p) == nil {
			c.permission = Permission(p.Level)
			c.emitter.Emit("permission", c.permission)
		}

	case transport.MsgDelete:
		c.emitter.Emit("delete", nil)
		c.disconnectLocked("document deleted")

	case transport.MsgPresence:
		var p transport.PresencePayload
		if env.Decode(&p) == nil {
			switch {
			case p.Joined:
				c.emitter.Emit("users", p)
			case p.Left:
				c.emitter.Emit("user:left", p)
			case p.Cursor != nil:
				c.emitter.Emit("cursor:activity", p)
			default:
				c.emitter.Emit("user:status", p)
			}
		}

	case transport.MsgError:
		var p transport.ErrorPayload
		if env.Decode(&p) == nil {
			c.emitter.Emit("error", fmt.Errorf("mdpad: server error %s: %s", p.Code, p.Message))
		}

	case transport.MsgPong:
		// Heartbeat acknowledgment; nothing to do.

	default:
		logging.Debug("mdpad: unrecognized message type %q", env.Type)
	}
}

// handleSnapshotLocked adopts a server snapshot as ground truth — the
// initial join, or a rejoin after reconnect — per spec.md §4.5: any
// unacknowledged in-flight/buffered operation is simply dropped by
// otclient.Client.Reset, and anything still waiting in the outbound
// queue is replayed as a fresh local edit against the new base.
func (c *Client) handleSnapshotLocked(p transport.SnapshotPayload) {
	pending := c.outbound.Drain()

	c.disarmOperationTimeoutLocked()
	c.oc.Reset(p.Content, p.Revision)
	c.undo.history.Clear()
	c.permission = Permission(p.Permission)
	c.isOwner = p.OwnerID != "" && p.OwnerID == c.clientID
	c.connected = true

	for _, entry := range pending {
		toSend, err := c.oc.ApplyLocal(entry.Operation)
		if err != nil {
			c.emitter.Emit("error", fmt.Errorf("%w: %v", ErrOperationDropped, err))
			continue
		}
		if toSend != nil {
			c.outbound.Enqueue(toSend, time.Now())
		}
	}

	if c.oc.State() != otclient.Synchronized {
		c.armOperationTimeoutLocked()
	}

	c.emitter.Emit("ready", ReadyEvent{Document: p.Content, Revision: p.Revision})
	c.emitter.Emit("document", c.oc.Document())
	c.emitter.Emit("permission", c.permission)
	c.pumpOutboundLocked()

	c.deliverReady(nil)
}

func (c *Client) deliverReady(err error) {
	if c.ready == nil {
		return
	}
	select {
	case c.ready <- err:
	default:
	}
	c.ready = nil
}
