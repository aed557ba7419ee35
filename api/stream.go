package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lightcycle-mcp/arena/internal/world"
)

// streamEvent mirrors the teacher's websocket.Message shape (session-ish
// envelope plus a named event), reused here as the payload of each SSE
// message instead of a WebSocket frame.
type streamEvent struct {
	Event string      `json:"type"`
	Game  world.World `json:"game"`
}

// Hub is the SSE equivalent of the teacher's transport/websocket.Hub: the
// same register/unregister/broadcast channel triad run by a single event
// loop goroutine, but fanning out to http.ResponseWriters under
// text/event-stream instead of upgraded WebSocket connections. It
// implements coordinator.Publisher.
type Hub struct {
	logger *slog.Logger

	register   chan chan []byte
	unregister chan chan []byte
	broadcast  chan []byte
}

// NewHub builds a Hub. Call Run in its own goroutine before serving
// requests.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		register:   make(chan chan []byte),
		unregister: make(chan chan []byte),
		broadcast:  make(chan []byte),
	}
}

// Run is the hub's event loop, grounded on the teacher's Hub.Run: a single
// goroutine owns the subscriber set so register/unregister/broadcast need
// no extra locking.
func (h *Hub) Run() {
	subscribers := make(map[chan []byte]bool)
	for {
		select {
		case ch := <-h.register:
			subscribers[ch] = true
		case ch := <-h.unregister:
			if subscribers[ch] {
				delete(subscribers, ch)
				close(ch)
			}
		case msg := <-h.broadcast:
			for ch := range subscribers {
				select {
				case ch <- msg:
				default:
					// Slow subscriber: drop it rather than block the
					// whole broadcast, same rule as the teacher's
					// Hub.broadcastMessage.
					delete(subscribers, ch)
					close(ch)
				}
			}
		}
	}
}

// Publish implements coordinator.Publisher. It never blocks the caller:
// a full broadcast channel is treated the same as a full subscriber
// channel would be, and simply drops the event.
func (h *Hub) Publish(eventType string, snapshot world.World) {
	data, err := json.Marshal(streamEvent{Event: eventType, Game: snapshot})
	if err != nil {
		h.logger.Warn("stream: failed to marshal event", "event", eventType, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("stream: dropped event, hub is backed up", "event", eventType)
	}
}

// ServeHTTP implements GET /api/stream: a standing text/event-stream
// response that relays every published event as one `data:` line until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 16)
	h.register <- ch
	defer func() { h.unregister <- ch }()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
