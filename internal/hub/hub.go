// Package hub maintains the set of live dashboard connections and
// fans broadcast events out to all of them. Delivery is best-effort:
// one attempt per subscriber per event, and a subscriber that fails
// or stalls is evicted rather than retried.
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/faizdevx/CrashNet/internal/metrics"
)

// A connection must show some sign of life (keep-alive text, ping,
// anything) within this window or it is presumed dead.
const keepAliveTimeout = 60 * time.Second

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber

	writeTimeout time.Duration
	sendBuffer   int
	log          *zap.Logger
}

func New(writeTimeout time.Duration, sendBuffer int, log *zap.Logger) *Hub {
	return &Hub{
		subscribers:  make(map[string]*subscriber),
		writeTimeout: writeTimeout,
		sendBuffer:   sendBuffer,
		log:          log,
	}
}

// Subscribe registers conn and returns its handle. The connection is
// serviced by a writer goroutine (outbound events, in order) and a
// reader goroutine (keep-alive drain and close detection).
func (h *Hub) Subscribe(conn *websocket.Conn) string {
	sub := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	go h.writeLoop(sub)
	go h.readLoop(sub)

	h.log.Info("subscriber connected",
		zap.String("subscriber_id", sub.id),
		zap.String("remote", conn.RemoteAddr().String()))
	return sub.id
}

// Unsubscribe removes and closes a subscriber. Idempotent: unknown or
// already-removed handles are a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if ok {
		sub.close()
	}
}

// Count returns the current number of live subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast enqueues payload for every current subscriber. The
// registry is snapshotted first, so concurrent connects and evictions
// cannot disturb the iteration. A subscriber whose outbound buffer is
// full has stopped draining and is evicted instead of blocking the
// rest.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	snapshot := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	for _, sub := range snapshot {
		select {
		case sub.send <- payload:
		default:
			h.evict(sub, "send buffer full")
		}
	}
}

// Shutdown disconnects every subscriber.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (h *Hub) evict(sub *subscriber, reason string) {
	h.mu.Lock()
	_, present := h.subscribers[sub.id]
	if present {
		delete(h.subscribers, sub.id)
	}
	h.mu.Unlock()

	sub.close()
	if present {
		metrics.SubscribersEvicted.Add(1)
		h.log.Warn("subscriber evicted",
			zap.String("subscriber_id", sub.id),
			zap.String("reason", reason))
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	for {
		select {
		case payload := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.evict(sub, "write failed: "+err.Error())
				return
			}
			metrics.BroadcastsDelivered.Add(1)

		case <-sub.done:
			return
		}
	}
}

// readLoop drains keep-alive messages without decoding them. Each
// message pushes the read deadline forward; silence past the window
// or a transport close ends the subscription.
func (h *Hub) readLoop(sub *subscriber) {
	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(keepAliveTimeout))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(keepAliveTimeout))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.evict(sub, "connection closed")
			return
		}
		sub.conn.SetReadDeadline(time.Now().Add(keepAliveTimeout))
	}
}
