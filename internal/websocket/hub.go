package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Event kinds pushed to connected clients
const (
	EventRecordSaved   = "record.saved"
	EventRecordPaid    = "record.paid"
	EventSessionEnded  = "session.ended"
	EventCalculationOK = "calculation.completed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the companion API only listens on localhost
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the JSON frame sent to clients
type Event struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Client represents a single connected WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected client
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *zap.Logger
	gauge      prometheus.Gauge
}

// NewHub initializes a new WS Hub instance. gauge may be nil.
func NewHub(log *zap.Logger, gauge prometheus.Gauge) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        log,
		gauge:      gauge,
	}
}

// Run dispatches events until ctx is cancelled, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
			h.setGauge()
			h.log.Debug("notification client connected", zap.Int("clients", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.Debug("notification client disconnected", zap.Int("clients", len(h.clients)))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.drop(client)
				}
			}
		}
	}
}

// Publish queues an event for every client. It never blocks: when the queue
// is full the event is dropped.
func (h *Hub) Publish(kind string, payload any) {
	message, err := json.Marshal(Event{Type: kind, Payload: payload, At: time.Now().UTC()})
	if err != nil {
		h.log.Error("failed to encode event", zap.String("type", kind), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("notification queue full, dropping event", zap.String("type", kind))
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setGauge()
}

func (h *Hub) setGauge() {
	if h.gauge != nil {
		h.gauge.Set(float64(len(h.clients)))
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.conn.Close()
	}()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump keeps the connection alive and notices when the peer goes away
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("notification client read failed", zap.Error(err))
			}
			return
		}
	}
}

// ServeWs upgrades the request when its token query parameter matches the
// live session token returned by sessionToken.
func ServeWs(hub *Hub, c *gin.Context, sessionToken func() string, expired func(string) bool) {
	token := c.Query("token")
	current := sessionToken()
	if token == "" || current == "" || token != current {
		hub.log.Info("websocket connection rejected: token does not match session")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if expired != nil && expired(token) {
		hub.log.Info("websocket connection rejected: session expired")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 16)}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
