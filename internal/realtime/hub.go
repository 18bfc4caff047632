// Package realtime pushes chat message updates to connected clients.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// Event is what the hub writes to a stream.
type Event struct {
	Type    string        `json:"type"` // "ready", "message", "pong"
	Message *chat.Message `json:"message,omitempty"`
}

type inbound struct {
	Type string `json:"type"`
}

type streamKey struct {
	userID    string
	patientID string
}

const (
	defaultSendBuffer   = 64
	defaultWriteTimeout = 10 * time.Second
)

// subscriber owns one stream. Events are queued on send and written by a
// single writer goroutine so a slow client never blocks Publish.
type subscriber struct {
	conn *websocket.Conn
	send chan Event
	done chan struct{}
}

// Hub fans message updates out to every stream open for a user and patient.
type Hub struct {
	logger       *logging.Logger
	sendBuffer   int
	writeTimeout time.Duration

	mu   sync.RWMutex
	subs map[streamKey]map[*subscriber]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithSendBuffer sets how many events may queue per stream before new ones are dropped.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

func NewHub(logger *logging.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Hub{
		logger:       logger,
		sendBuffer:   defaultSendBuffer,
		writeTimeout: defaultWriteTimeout,
		subs:         make(map[streamKey]map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish sends msg to every stream for the user and msg.PatientID.
func (h *Hub) Publish(userID string, msg chat.Message) {
	key := streamKey{userID: userID, patientID: msg.PatientID}
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs[key]))
	for sub := range h.subs[key] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	event := Event{Type: "message", Message: &msg}
	for _, sub := range targets {
		if !sub.enqueue(event) {
			h.logger.Warn("realtime: stream queue full, dropping update", "patient_id", msg.PatientID, "message_id", msg.ID)
		}
	}
}

// enqueue never blocks. It reports false when the event was dropped.
func (s *subscriber) enqueue(event Event) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.send <- event:
		return true
	default:
		return false
	}
}

// Subscribers returns the number of open streams for a user and patient.
func (h *Hub) Subscribers(userID, patientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[streamKey{userID: userID, patientID: patientID}])
}

// Serve upgrades the request and keeps the stream open until the client leaves.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID, patientID string) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, streamKey{userID: userID, patientID: patientID})
	}).ServeHTTP(w, r)
}

func (h *Hub) serveWS(conn *websocket.Conn, key streamKey) {
	sub := &subscriber{conn: conn, send: make(chan Event, h.sendBuffer), done: make(chan struct{})}
	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscriber]struct{})
	}
	h.subs[key][sub] = struct{}{}
	h.mu.Unlock()
	defer func() {
		close(sub.done)
		h.mu.Lock()
		delete(h.subs[key], sub)
		if len(h.subs[key]) == 0 {
			delete(h.subs, key)
		}
		h.mu.Unlock()
	}()

	if err := h.write(conn, Event{Type: "ready"}); err != nil {
		return
	}
	h.logger.Debug("realtime: stream opened", "patient_id", key.patientID)
	go h.writeLoop(sub, key)

	for {
		var msg inbound
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("realtime: stream closed", "patient_id", key.patientID, "error", err)
			return
		}
		if msg.Type == "ping" {
			sub.enqueue(Event{Type: "pong"})
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber, key streamKey) {
	for {
		select {
		case <-sub.done:
			return
		case event := <-sub.send:
			if err := h.write(sub.conn, event); err != nil {
				h.logger.Debug("realtime: send failed", "patient_id", key.patientID, "error", err)
				// Unblocks the read loop, which deregisters the stream.
				_ = sub.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, event Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		return err
	}
	return websocket.JSON.Send(conn, event)
}
