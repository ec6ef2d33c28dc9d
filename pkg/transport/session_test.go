package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

func TestSessionSendAndReceiveRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var env Envelope
		require.NoError(t, conn.ReadJSON(&env))
		assert.Equal(t, MsgJoin, env.Type)

		welcome, _ := NewEnvelope(MsgWelcome, WelcomePayload{ClientID: "server-assigned"})
		require.NoError(t, conn.WriteJSON(welcome))
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess, err := Dial(ctx, url)
	require.NoError(t, err)
	defer sess.Close()

	join, err := NewEnvelope(MsgJoin, JoinPayload{DocumentID: "doc1", ClientID: "client1"})
	require.NoError(t, err)
	require.NoError(t, sess.Send(join))

	select {
	case env := <-sess.Inbound():
		require.NotNil(t, env)
		assert.Equal(t, MsgWelcome, env.Type)
		var payload WelcomePayload
		require.NoError(t, env.Decode(&payload))
		assert.Equal(t, "server-assigned", payload.ClientID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for welcome message")
	}
}

func TestSessionCloseEndsInboundChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sess, err := Dial(ctx, url)
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	assert.Equal(t, ErrSessionClosed, sess.Send(&Envelope{Type: MsgPing}))

	select {
	case _, ok := <-sess.Inbound():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("inbound channel did not close after Close")
	}
}
