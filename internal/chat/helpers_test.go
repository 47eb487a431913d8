package chat_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Tyrowin/livechat/internal/chat"
)

const fixedTime = "3:45:12 PM"

var errPeerGone = errors.New("peer gone")

type mockConn struct {
	id       string
	mu       sync.Mutex
	received [][]byte
	sendErr  error
	closed   bool
}

func newMockConn(id string) *mockConn {
	return &mockConn{id: id}
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) failSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// events returns and clears the frames received so far.
func (m *mockConn) events(t *testing.T) []wireEvent {
	t.Helper()
	m.mu.Lock()
	frames := m.received
	m.received = nil
	m.mu.Unlock()

	out := make([]wireEvent, 0, len(frames))
	for _, f := range frames {
		var ev wireEvent
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (e wireEvent) message(t *testing.T) chat.ChatMessage {
	t.Helper()
	require.Equal(t, chat.TypeMessage, e.Type)
	var msg chat.ChatMessage
	require.NoError(t, json.Unmarshal(e.Data, &msg))
	return msg
}

func (e wireEvent) count(t *testing.T) int {
	t.Helper()
	require.Equal(t, chat.TypeUsersOnline, e.Type)
	var n int
	require.NoError(t, json.Unmarshal(e.Data, &n))
	return n
}

func (e wireEvent) typingUser(t *testing.T) string {
	t.Helper()
	require.Equal(t, chat.TypeTyping, e.Type)
	var user string
	require.NoError(t, json.Unmarshal(e.Data, &user))
	return user
}

func newTestHub(t *testing.T) *chat.Hub {
	t.Helper()
	return chat.NewHub(zaptest.NewLogger(t), func() string { return fixedTime })
}

func frame(t *testing.T, typ string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": typ, "data": data})
	require.NoError(t, err)
	return raw
}

func joinFrame(t *testing.T, name string) []byte {
	return frame(t, chat.TypeJoin, name)
}

func messageFrame(t *testing.T, text, user string) []byte {
	return frame(t, chat.TypeMessage, map[string]string{"text": text, "user": user, "time": "client time"})
}

func typingFrame(t *testing.T, name string) []byte {
	return frame(t, chat.TypeTyping, name)
}
