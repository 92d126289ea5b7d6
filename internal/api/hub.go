package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/events"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

// Message types pushed to websocket clients.
const (
	MessageSnapshot = "snapshot"
	MessageFeed     = "feed"
	MessageStarted  = "started"
	MessageStopped  = "stopped"
)

// StreamMessage is one websocket frame.
type StreamMessage struct {
	Type    string                    `json:"type"`
	Round   string                    `json:"round,omitempty"`
	Merged  int                       `json:"merged,omitempty"`
	Wallets []string                  `json:"wallets,omitempty"`
	Feed    []domain.TransactionEvent `json:"feed,omitempty"`
	Time    time.Time                 `json:"time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans feed updates from the event bus out to websocket clients. A
// client that cannot keep up is disconnected.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	snapshot func() []domain.TransactionEvent
	subs     []events.Subscription
	logger   *zap.Logger
}

// NewHub subscribes to bus. snapshot supplies the feed sent on connect.
func NewHub(bus *events.Bus, snapshot func() []domain.TransactionEvent, logger *zap.Logger) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		snapshot: snapshot,
		logger:   logger.Named("ws_hub"),
	}

	for _, t := range []events.EventType{events.FeedUpdated, events.MonitoringStarted, events.MonitoringStopped} {
		h.subs = append(h.subs, bus.Subscribe(t, h))
	}
	return h
}

// Handle implements events.Handler.
func (h *Hub) Handle(_ context.Context, event events.Event) error {
	msg := StreamMessage{Time: event.Timestamp()}

	switch e := event.(type) {
	case events.FeedUpdatedEvent:
		if e.Merged == 0 && e.Round != "start" {
			return nil
		}
		msg.Type = MessageFeed
		msg.Round = e.Round
		msg.Merged = e.Merged
		msg.Feed = e.Feed
	case events.MonitoringStartedEvent:
		msg.Type = MessageStarted
		msg.Wallets = e.Wallets
	case events.MonitoringStoppedEvent:
		msg.Type = MessageStopped
	default:
		return nil
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.broadcast(data)
	return nil
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Websocket client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// ServeHTTP upgrades the connection and streams until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}

	// клиент регистрируется до снимка: обновление, пришедшее во время
	// снимка, встанет в очередь после него
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)

	initial, err := json.Marshal(StreamMessage{
		Type: MessageSnapshot,
		Feed: h.snapshot(),
		Time: time.Now(),
	})
	if err != nil {
		h.removeLocked(c)
		h.mu.Unlock()
		conn.Close()
		return
	}
	c.send <- initial
	h.mu.Unlock()

	h.logger.Debug("Websocket client connected", zap.Int("count", count))

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards inbound frames and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close unsubscribes from the bus and disconnects every client.
func (h *Hub) Close() {
	for _, sub := range h.subs {
		sub.Unsubscribe()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
