package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/coreseekdev/mdpad/pkg/logging"
)

// ErrSessionClosed is returned by Send once the session has been closed.
var ErrSessionClosed = errors.New("transport: session closed")

// Session owns one WebSocket connection in client-dial mode. Reads happen
// on a single background goroutine that decodes each frame into an
// Envelope and forwards it to Inbound(); writes are serialized through a
// mutex so callers on different goroutines can Send concurrently.
//
// Grounded on the teacher's WebSocketTransport.Connect/receiveLoop split
// in pkg/transport/websocket.go, stripped of its server-hub half.
type Session struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	inbound chan *Envelope
	closing chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// Dial opens a client WebSocket connection to url and starts the receive
// loop. Callers read decoded messages from the returned Session's
// Inbound() channel until it closes.
func Dial(ctx context.Context, url string) (*Session, error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	s := &Session{
		conn:    conn,
		inbound: make(chan *Envelope, 64),
		closing: make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Inbound returns the channel of messages received from the server. It is
// closed when the connection ends, whether via Close or a read error.
func (s *Session) Inbound() <-chan *Envelope { return s.inbound }

// Send serializes and writes an envelope. Safe for concurrent use.
func (s *Session) Send(e *Envelope) error {
	s.closeMu.Lock()
	closed := s.closed
	s.closeMu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(e)
}

// Close shuts down the connection and stops the receive loop. Idempotent.
func (s *Session) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()
	close(s.closing)

	return s.conn.Close()
}

func (s *Session) readLoop() {
	defer close(s.inbound)

	for {
		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			logging.Debug("transport: read loop ending: %v", err)
			return
		}
		select {
		case s.inbound <- &env:
		case <-s.closing:
			return
		}
	}
}
