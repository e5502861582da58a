// Package feed streams emotion updates to websocket subscribers so an
// operator dashboard can watch conversations without touching the
// classification path.
package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kairosvoice/attune/pkg/emotion"
)

// Update is one published emotion event.
type Update struct {
	ConversationID string         `json:"conversation_id"`
	PersonaID      string         `json:"persona_id,omitempty"`
	Result         emotion.Result `json:"result"`
	Dominant       emotion.Label  `json:"dominant"`
	Escalate       bool           `json:"escalate"`
	Time           time.Time      `json:"time"`
}

type subscriber struct {
	id   string
	ch   chan Update
	conn *websocket.Conn
}

// Hub fans updates out to connected subscribers. Publishing never
// blocks; a subscriber that cannot keep up has updates dropped.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	subs    map[string]*subscriber
	closed  bool
	dropped int64
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:  slog.Default(),
		subs: make(map[string]*subscriber),
	}
}

func (h *Hub) SetLogger(log *slog.Logger) {
	if log != nil {
		h.log = log
	}
}

// ServeHTTP upgrades the request and streams updates until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("feed_upgrade_failed", "error", err)
		return
	}
	sub := h.register(conn)
	if sub == nil {
		_ = conn.Close()
		return
	}
	go h.writeLoop(sub)
	// Reader loop only detects close; subscribers never send payloads.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(sub.id)
}

// Publish sends an update to every subscriber without blocking.
func (h *Hub) Publish(u Update) {
	if u.Time.IsZero() {
		u.Time = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs {
		select {
		case sub.ch <- u:
		default:
			h.dropped++
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many updates were discarded for slow subscribers.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close disconnects all subscribers and rejects future publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()
	for _, sub := range subs {
		close(sub.ch)
		if sub.conn != nil {
			_ = sub.conn.Close()
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) *subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	sub := &subscriber{
		id:   uuid.NewString(),
		ch:   make(chan Update, 64),
		conn: conn,
	}
	h.subs[sub.id] = sub
	return sub
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if ok {
		close(sub.ch)
		if sub.conn != nil {
			_ = sub.conn.Close()
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	for u := range sub.ch {
		msg, err := json.Marshal(u)
		if err != nil {
			continue
		}
		if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.unregister(sub.id)
			return
		}
	}
}
