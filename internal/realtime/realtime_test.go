package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufConn struct {
	frames [][]byte
	full   bool
}

func (b *bufConn) Enqueue(frame []byte) bool {
	if b.full {
		return false
	}
	b.frames = append(b.frames, frame)
	return true
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.DiscardHandler))
}

func TestRegistryPush(t *testing.T) {
	reg := newTestRegistry()
	assert.False(t, reg.Push(1, "notification", "x"), "offline user")

	a, b := &bufConn{}, &bufConn{}
	reg.Register(1, a)
	reg.Register(1, b)
	assert.True(t, reg.Online(1))
	assert.Len(t, reg.Lookup(1), 2)

	require.True(t, reg.Push(1, "notification", map[string]int{"id": 7}))
	require.Len(t, a.frames, 1)
	require.Len(t, b.frames, 1)

	var env struct {
		Event   string         `json:"event"`
		Payload map[string]int `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(a.frames[0], &env))
	assert.Equal(t, "notification", env.Event)
	assert.Equal(t, 7, env.Payload["id"])

	reg.Unregister(1, a)
	reg.Unregister(1, b)
	assert.False(t, reg.Online(1))
	assert.Empty(t, reg.Lookup(1))
}

func TestRegistryPushFullBuffer(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(2, &bufConn{full: true})
	assert.False(t, reg.Push(2, "chat_message", "hi"))

	ok := &bufConn{}
	reg.Register(2, ok)
	assert.True(t, reg.Push(2, "chat_message", "hi"))
	assert.Len(t, ok.frames, 1)
}

type tokenAuth map[string]uint64

func (a tokenAuth) Authenticate(_ context.Context, token string) (uint64, error) {
	if id, ok := a[token]; ok {
		return id, nil
	}
	return 0, errors.New("bad token")
}

func newServer(t *testing.T, reg *Registry) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(reg, tokenAuth{"good": 42}, []string{"*"}, slog.New(slog.DiscardHandler))
	r.GET("/ws", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandlerRejectsBadToken(t *testing.T) {
	srv := newServer(t, newTestRegistry())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerDeliversPush(t *testing.T) {
	reg := newTestRegistry()
	srv := newServer(t, reg)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return reg.Online(42) }, time.Second, 10*time.Millisecond)
	require.True(t, reg.Push(42, "notification", map[string]string{"type": "mod_invite"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"notification","payload":{"type":"mod_invite"}}`, string(data))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !reg.Online(42) }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://circle.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "no origin header")
	req.Header.Set("Origin", "https://circle.example")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}
