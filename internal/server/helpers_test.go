package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/livechat/internal/chat"
	"github.com/Tyrowin/livechat/internal/server"
)

const testOrigin = "http://localhost:8080"

type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// startTestServer runs a Server behind httptest and shuts both down when the
// test ends. customize may adjust the config before the server is built.
func startTestServer(t *testing.T, customize func(cfg *server.Config)) (*server.Server, *httptest.Server) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	cfg.StatsSchedule = ""
	cfg.RateLimit.Burst = 100
	if customize != nil {
		customize(cfg)
	}

	srv, err := server.New(cfg, zap.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
	})
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialWithOrigin(ts *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return dialer.Dial(wsURL(ts), header)
}

// connect dials the chat endpoint and waits until the hub has registered the
// new connection, so later events are observed in a known order.
func connect(t *testing.T, srv *server.Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	before := srv.Hub().Online()

	conn, resp, err := dialWithOrigin(ts, testOrigin)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return srv.Hub().Online() >= before+1
	}, 2*time.Second, 10*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": typ, "data": data}))
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func readMessage(t *testing.T, conn *websocket.Conn) chat.ChatMessage {
	t.Helper()
	ev := readEvent(t, conn)
	require.Equal(t, chat.TypeMessage, ev.Type, "unexpected event %s", ev.Data)
	var msg chat.ChatMessage
	require.NoError(t, json.Unmarshal(ev.Data, &msg))
	return msg
}

func readCount(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	ev := readEvent(t, conn)
	require.Equal(t, chat.TypeUsersOnline, ev.Type, "unexpected event %s", ev.Data)
	var n int
	require.NoError(t, json.Unmarshal(ev.Data, &n))
	return n
}

func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no message, received %s", data)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	t.Fatalf("unexpected error while waiting for absence of message: %v", err)
}
