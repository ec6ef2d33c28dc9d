// Package transport is the client-side WebSocket session adapter of
// spec.md §4.5: it owns the single socket, serializes the tagged-union
// wire protocol, and hands a single consumer loop a channel of decoded
// server messages.
//
// Grounded on the teacher's pkg/transport/protocol.go message catalogue
// and pkg/transport/websocket.go's client-mode Dialer/receive-loop split;
// the server-only pieces of that package (hub, hand-rolled session
// reference counting, SSE/TCP/Redis transports) have no role in a client
// library and are not carried forward — see DESIGN.md.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageType tags every wire message so the consumer (pkg/mdpad's
// handleEnvelope) can switch on Type before unmarshaling Data into its
// concrete payload.
type MessageType string

const (
	// Client → server.
	MsgJoin      MessageType = "join"
	MsgOperation MessageType = "operation"
	MsgCursor    MessageType = "cursor"
	MsgPing      MessageType = "ping"

	// Server → client.
	MsgWelcome         MessageType = "welcome"
	MsgSnapshot        MessageType = "snapshot"
	MsgAck             MessageType = "ack"
	MsgRemoteOperation MessageType = "remote_operation"
	MsgPresence        MessageType = "presence"
	MsgRefresh         MessageType = "refresh"
	MsgPermission      MessageType = "permission"
	MsgDelete          MessageType = "delete"
	MsgError           MessageType = "error"
	MsgPong            MessageType = "pong"
)

// Envelope is the outer frame for every message exchanged over the
// socket; Data carries the type-specific payload as raw JSON so decoding
// can be deferred until MessageType is known.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an Envelope of the given type.
func NewEnvelope(t MessageType, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: encode %s payload: %w", t, err)
	}
	return &Envelope{Type: t, Data: raw}, nil
}

// Decode unmarshals e.Data into out.
func (e *Envelope) Decode(out interface{}) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}

// JoinPayload requests access to a document, per spec.md §6's connection
// handshake.
type JoinPayload struct {
	DocumentID string `json:"documentId"`
	ClientID   string `json:"clientId"`
	Token      string `json:"token,omitempty"`
}

// OperationPayload carries a locally-generated operation awaiting
// acknowledgment, addressed by the revision the client last synchronized.
type OperationPayload struct {
	Revision  int           `json:"revision"`
	Operation []interface{} `json:"operation"`
	ClientID  string        `json:"clientId"`
}

// CursorPayload reports a local cursor/selection for presence broadcast.
type CursorPayload struct {
	Position     int `json:"position"`
	SelectionEnd int `json:"selectionEnd"`
}

// WelcomePayload is the first message after a successful join.
type WelcomePayload struct {
	ClientID string `json:"clientId"`
}

// SnapshotPayload carries the current document state and permission at
// join time, per spec.md §6's `{document, revision, permission, owner,
// title, createtime, updatetime}`.
type SnapshotPayload struct {
	Content    string   `json:"content"`
	Revision   int      `json:"revision"`
	Permission string   `json:"permission"`
	OwnerID    string    `json:"owner"`
	Title      string    `json:"title"`
	CreatedAt  int64     `json:"createtime"`
	UpdatedAt  int64     `json:"updatetime"`
	Clients    []string `json:"clients"`
}

// RefreshPayload carries a metadata change, including permission changes,
// per spec.md §6's `refresh(noteInfo)`.
type RefreshPayload struct {
	Title      string `json:"title"`
	Permission string `json:"permission"`
	OwnerID    string `json:"owner"`
	UpdatedAt  int64  `json:"updatetime"`
}

// AckPayload confirms the server has applied the client's in-flight
// operation, advancing it to the given revision.
type AckPayload struct {
	Revision int `json:"revision"`
}

// RemoteOperationPayload carries another client's operation, to be
// transformed against any locally in-flight/buffered operation before
// application.
type RemoteOperationPayload struct {
	Revision  int           `json:"revision"`
	Operation []interface{} `json:"operation"`
	ClientID  string        `json:"clientId"`
}

// PresencePayload reports another client joining, leaving, or moving
// their cursor.
type PresencePayload struct {
	ClientID string         `json:"clientId"`
	Joined   bool           `json:"joined"`
	Left     bool           `json:"left"`
	Cursor   *CursorPayload `json:"cursor,omitempty"`
}

// PermissionPayload reports a mid-session permission change.
type PermissionPayload struct {
	Level string `json:"level"`
}

// ErrorPayload reports a server-side rejection, per spec.md §7's error
// taxonomy (permission_denied, revision_mismatch, malformed_operation,
// unknown_document).
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClientID generates a random per-connection client identifier.
func NewClientID() string {
	return uuid.New().String()
}
