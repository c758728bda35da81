package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// startHub serves the hub on a test server. The connecting user is taken
// from the uid query parameter.
func startHub(t *testing.T, pingInterval time.Duration) (*Hub, string) {
	t.Helper()

	hub := NewHub(pingInterval, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		uid, _ := strconv.ParseUint(c.Query("uid"), 10, 64)
		c.Set("userID", uint(uid))
		hub.ServeWS(c)
	})
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, uid uint) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url+"?uid="+strconv.FormatUint(uint64(uid), 10), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })

	welcome := readEvent(t, conn)
	require.Equal(t, TypeConnection, welcome.Type)
	require.Equal(t, ActionOpen, welcome.Action)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "expected no further events")
}

func TestHub_BroadcastExactlyOnceNoReplay(t *testing.T) {
	hub, url := startHub(t, time.Minute)

	early := dial(t, url, 2)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{
		Type:   TypeLocationReport,
		Action: ActionCreate,
		Data:   map[string]any{"id": 7, "user": map[string]any{"id": 2, "username": "demo"}},
	})

	ev := readEvent(t, early)
	assert.Equal(t, TypeLocationReport, ev.Type)
	assert.Equal(t, ActionCreate, ev.Action)
	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, data["id"])
	assert.NotNil(t, data["user"])
	assertSilent(t, early)

	late := dial(t, url, 3)
	assertSilent(t, late)
}

func TestHub_SendToUser(t *testing.T) {
	hub, url := startHub(t, time.Minute)

	alice := dial(t, url, 2)
	bob := dial(t, url, 3)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.SendToUser(3, Event{Type: TypeNotification, Action: ActionCreate, Data: map[string]any{"id": 1}})

	ev := readEvent(t, bob)
	assert.Equal(t, TypeNotification, ev.Type)
	assertSilent(t, alice)
}

func TestHub_EvictsUnresponsiveClients(t *testing.T) {
	hub, url := startHub(t, 50*time.Millisecond)

	responsive := dial(t, url, 2)
	go func() {
		// Reading lets the default ping handler answer with pongs.
		_ = responsive.SetReadDeadline(time.Time{})
		for {
			if _, _, err := responsive.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Never reads again, so pings go unanswered.
	_ = dial(t, url, 3)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 20*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_CheckLivenessOnlyQueuesPings(t *testing.T) {
	hub := NewHub(time.Minute, nil)
	// No connection: any write from the hub goroutine would panic.
	stalled := &Client{hub: hub, userID: 2, send: make(chan []byte, 1), ping: make(chan struct{}, 1), alive: true}
	hub.clients[stalled] = struct{}{}

	hub.checkLiveness()
	assert.False(t, stalled.alive)
	assert.Len(t, stalled.ping, 1)

	// A pending ping is not stacked and does not block the tick.
	stalled.alive = true
	done := make(chan struct{})
	go func() {
		hub.checkLiveness()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("liveness check blocked on a client that is not writing")
	}
	assert.Len(t, stalled.ping, 1)
	assert.Equal(t, 1, len(hub.clients))
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, url := startHub(t, time.Minute)

	conn := dial(t, url, 2)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))
}
