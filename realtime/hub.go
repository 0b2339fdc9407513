// Package realtime fans gallery snapshots out to websocket clients. The
// underlying channel is best-effort: slow clients are dropped and reconnect.
package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tagvault/backend/gallery"
	"github.com/tagvault/backend/models"
)

// Event is one message pushed to websocket clients. Snapshot events carry the
// full recomputed ordered list; consumers never receive incremental diffs.
type Event struct {
	Type      string         `json:"type"` // "snapshot" or "error"
	Images    []models.Image `json:"images,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a simple pubsub for websocket clients
type Hub struct {
	clients      map[*Client]bool
	register     chan *Client
	unregister   chan *Client
	broadcast    chan []byte
	lastSnapshot []byte
	logger       *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			// new clients start from the latest known snapshot
			if h.lastSnapshot != nil {
				select {
				case client.send <- h.lastSnapshot:
				default:
				}
			}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			h.lastSnapshot = message
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Watch consumes a gallery subscription and broadcasts every pushed snapshot
// until the subscription is cancelled.
func (h *Hub) Watch(sub *gallery.Subscription) {
	for {
		select {
		case images := <-sub.Snapshots():
			h.send(Event{Type: "snapshot", Images: images, Timestamp: time.Now().Unix()})
		case err := <-sub.Errors():
			h.send(Event{Type: "error", Error: err.Error(), Timestamp: time.Now().Unix()})
		case <-sub.Done():
			return
		}
	}
}

func (h *Hub) send(event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal realtime event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- encoded:
	default:
		h.logger.Warn("dropping realtime event, broadcast channel full")
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and registers a client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	// writer
	go func() {
		for msg := range client.send {
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		client.conn.Close()
	}()

	// reader (just consume pings/close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister <- client
}
