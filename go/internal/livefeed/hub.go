// Package livefeed pushes registration events to organizer dashboards over
// WebSocket. It subscribes to the same subject the coordinator publishes on
// and broadcasts each event to every connected client.
package livefeed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type connection struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks active WebSocket connections and fans broadcast messages out to
// them. Slow clients are disconnected rather than allowed to back up the
// broadcast loop.
type Hub struct {
	mu    sync.RWMutex
	conns map[*connection]bool

	upgrader    websocket.Upgrader
	broadcastCh chan []byte

	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		broadcastCh:  make(chan []byte, 64),
		writeTimeout: 10 * time.Second,
	}
}

// Run drives the broadcast loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case data := <-h.broadcastCh:
			h.mu.RLock()
			for c := range h.conns {
				select {
				case c.send <- data:
				default:
					log.Warn().Str("conn_id", c.id).Msg("client too slow, dropping connection")
					go h.drop(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues one message for every connected client.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcastCh <- data:
	default:
		log.Warn().Msg("broadcast queue full, dropping event")
	}
}

// SubscribeNATS forwards every message on subject into the hub.
func (h *Hub) SubscribeNATS(nc *nats.Conn, subject string) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		h.Broadcast(msg.Data)
	})
}

// HandleWS upgrades the request and keeps the connection until the client
// goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &connection{
		id:   uuid.New().String(),
		conn: ws,
		send: make(chan []byte, 16),
	}

	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
	log.Info().Str("conn_id", c.id).Msg("live feed client connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *connection) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) readLoop(c *connection) {
	// Clients only listen; reads exist to detect disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *connection) {
	h.mu.Lock()
	if !h.conns[c] {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	h.mu.Unlock()

	close(c.send)
	_ = c.conn.Close()
	log.Info().Str("conn_id", c.id).Msg("live feed client disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.drop(c)
	}
}
