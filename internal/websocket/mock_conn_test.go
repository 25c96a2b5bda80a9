package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"linkinbio-service/internal/protocol"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var errClosedConnection = errors.New("mock connection closed")

// mockConn implements Conn for testing. Frames pushed with deliver are
// returned by ReadMessage; written frames are recorded.
type mockConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failing  bool

	inbound chan []byte
	done    chan struct{}
	written chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
		written: make(chan struct{}, 64),
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.failing {
		return errClosedConnection
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	m.messages = append(m.messages, data)
	select {
	case m.written <- struct{}{}:
	default:
	}
	return nil
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-m.inbound:
		return websocket.TextMessage, data, nil
	case <-m.done:
		return 0, nil, errClosedConnection
	}
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *mockConn) deliver(data []byte) {
	m.inbound <- data
}

func (m *mockConn) getMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]byte, len(m.messages))
	copy(result, m.messages)
	return result
}

// waitMessages blocks until at least n frames were written.
func (m *mockConn) waitMessages(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if msgs := m.getMessages(); len(msgs) >= n {
			return msgs
		}
		select {
		case <-m.written:
		case <-deadline:
			t.Fatalf("expected %d messages, got %d", n, len(m.getMessages()))
		}
	}
}

// newTestConnection returns a started Connection over a mockConn.
func newTestConnection(t *testing.T) (*Connection, *mockConn) {
	t.Helper()
	mc := newMockConn()
	c := NewConnection(mc, 16, nil)
	c.Start(0)
	t.Cleanup(c.Close)
	return c, mc
}

// staticAuth treats a user token as the user id it belongs to.
type staticAuth struct {
	websocketToken string
}

func (a staticAuth) ResolveUser(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

func (a staticAuth) ValidateWebsocketToken(token string) bool {
	return token == a.websocketToken
}

const testWebsocketToken = "ws-secret"

func newTestEngine(registry *Registry) *Engine {
	return NewEngine(registry, staticAuth{websocketToken: testWebsocketToken}, protocol.Advice{}, nil, nil)
}

// negotiate runs handshake and connect for conn and returns the client id.
func negotiate(t *testing.T, e *Engine, conn *Connection) string {
	t.Helper()
	ctx := context.Background()

	resp := e.Handle(ctx, conn, &protocol.HandshakeRequest{ID: "1", SupportedConnectionTypes: []string{protocol.ConnectionTypeWebsocket}})
	hs, ok := resp.(*protocol.HandshakeResponse)
	require.True(t, ok, "handshake failed: %+v", resp)

	resp = e.Handle(ctx, conn, &protocol.ConnectionRequest{ID: "2", ClientID: hs.ClientID, ConnectionType: protocol.ConnectionTypeWebsocket})
	_, ok = resp.(*protocol.ConnectionResponse)
	require.True(t, ok, "connect failed: %+v", resp)
	return hs.ClientID
}

func subscribeRequest(clientID, userID string) *protocol.SubscriptionRequest {
	return &protocol.SubscriptionRequest{
		ID:           "3",
		ClientID:     clientID,
		Subscription: protocol.UserChannel(userID),
		Authentication: protocol.Authentication{
			UserID:         userID,
			UserToken:      userID,
			WebsocketToken: testWebsocketToken,
		},
	}
}

func decodeFrame(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}
