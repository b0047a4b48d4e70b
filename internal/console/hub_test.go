package console

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

func TestHub_PermissionAggregation(t *testing.T) {
	hub := NewHub(testLogger())

	// No consoles connected: nowhere to show a toast.
	assert.Equal(t, notify.PermissionDenied, hub.Permission())

	c1 := &websocket.Conn{}
	c2 := &websocket.Conn{}
	hub.Register("a@mirae-imaging.example", c1)
	hub.Register("b@mirae-imaging.example", c2)

	// Fresh connections have not decided yet.
	assert.Equal(t, notify.PermissionDefault, hub.Permission())

	hub.SetPermission(c1, notify.PermissionDenied)
	assert.Equal(t, notify.PermissionDefault, hub.Permission())

	hub.SetPermission(c2, notify.PermissionDenied)
	assert.Equal(t, notify.PermissionDenied, hub.Permission())

	hub.SetPermission(c1, notify.PermissionGranted)
	assert.Equal(t, notify.PermissionGranted, hub.Permission())

	hub.Unregister(c1)
	assert.Equal(t, notify.PermissionDenied, hub.Permission())
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHub_SetPermissionIgnoresUnknownConn(t *testing.T) {
	hub := NewHub(testLogger())

	hub.SetPermission(&websocket.Conn{}, notify.PermissionGranted)
	assert.Equal(t, notify.PermissionDenied, hub.Permission())
}

// dialHub upgrades a real WebSocket into the hub and returns the client
// side.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register("admin@mirae-imaging.example", conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// Wait until the server side registered.
	deadline := time.Now().Add(time.Second)
	for hub.ConnectionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, hub.ConnectionCount())

	return client
}

func serverConn(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for conn := range hub.connections {
		return conn
	}
	t.Fatal("no registered connection")
	return nil
}

func TestHub_ShowReachesGrantedConsole(t *testing.T) {
	hub := NewHub(testLogger())
	client := dialHub(t, hub)

	hub.SetPermission(serverConn(t, hub), notify.PermissionGranted)

	require.NoError(t, hub.Show("새 예약 신청", "홍길동님이 MRI 검사를 신청했습니다."))

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := client.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, FrameTypeNotification, frame.Type)
	assert.Equal(t, "새 예약 신청", frame.Title)
}

func TestHub_RequestPermissionPromptsUndecided(t *testing.T) {
	hub := NewHub(testLogger())
	client := dialHub(t, hub)

	perm, err := hub.RequestPermission()
	require.NoError(t, err)
	assert.Equal(t, notify.PermissionDefault, perm)

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := client.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, FrameTypePermissionRequest, frame.Type)
}

func TestHub_ShowSkipsUndecidedAndDenied(t *testing.T) {
	hub := NewHub(testLogger())
	client := dialHub(t, hub)

	hub.SetPermission(serverConn(t, hub), notify.PermissionDenied)
	require.NoError(t, hub.Show("제목", "본문"))

	client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := client.ReadMessage()
	assert.Error(t, err, "denied console should receive nothing")
}
