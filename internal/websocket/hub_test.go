package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

func newServer(t *testing.T, hub *Hub, token string) *httptest.Server {
	t.Helper()
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, func() string { return token }, nil)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
}

func TestHub_DeliversPublishedEvents(t *testing.T) {
	hub := NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	srv := newServer(t, hub, "tok-1")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "tok-1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// registration is asynchronous; publish until the client sees a frame
	var event Event
	require.Eventually(t, func() bool {
		hub.Publish(EventRecordSaved, map[string]string{"record_id": "rec-1"})
		_ = conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return false
		}
		return json.Unmarshal(data, &event) == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, EventRecordSaved, event.Type)
	assert.Equal(t, map[string]any{"record_id": "rec-1"}, event.Payload)
}

func TestServeWs_RejectsForeignToken(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := newServer(t, hub, "tok-1")

	for _, token := range []string{"", "someone-else"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestServeWs_RejectsExpiredSession(t *testing.T) {
	hub := NewHub(nil, nil)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ServeWs(hub, c, func() string { return "tok-1" }, func(string) bool { return true })
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "tok-1"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil, nil)

	// nothing drains the queue
	done := make(chan struct{})
	go func() {
		for range 200 {
			hub.Publish(EventRecordPaid, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
}
