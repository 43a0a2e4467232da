package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/signspeak/internal/gesture"
	"github.com/ayusman/signspeak/internal/session"
	"github.com/ayusman/signspeak/internal/stabilizer"
)

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message types sent by the hub.
const (
	MessageEvent     = "event"
	MessageLandmarks = "landmarks"
	MessageStatus    = "status"
)

// Message is the envelope for everything pushed to /api/events clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected websocket client. Slow clients miss messages
// rather than block the broadcaster.
type Hub struct {
	logger  zerolog.Logger
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger.With().Str("component", "hub").Logger(),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	if !h.register(c) {
		conn.Close()
		return
	}
	go h.writePump(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Debug().Int("clients", len(h.clients)).Msg("client connected")
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Debug().Int("clients", len(h.clients)).Msg("client disconnected")
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.unregister(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// Broadcast sends a message of the given type to all clients.
func (h *Hub) Broadcast(msgType string, data any) {
	msg, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("failed to encode message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug().Str("type", msgType).Msg("client too slow, message dropped")
		}
	}
}

// BroadcastEvent publishes a stabilizer event.
func (h *Hub) BroadcastEvent(ev stabilizer.Event) {
	h.Broadcast(MessageEvent, ev)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// FrameProcessor consumes wire observations.
type FrameProcessor interface {
	ProcessJSON(ctx context.Context, data []byte) (session.Outcome, error)
}

// FrameReply answers each frame received on /api/frames.
type FrameReply struct {
	Result *gesture.Result   `json:"result,omitempty"`
	Event  *stabilizer.Event `json:"event,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// FramesHandler accepts observations from a browser-side tracker, one JSON message per frame,
// and replies with the outcome of each.
type FramesHandler struct {
	proc   FrameProcessor
	logger zerolog.Logger
}

// NewFramesHandler creates a FramesHandler.
func NewFramesHandler(proc FrameProcessor, logger zerolog.Logger) *FramesHandler {
	return &FramesHandler{
		proc:   proc,
		logger: logger.With().Str("component", "frames").Logger(),
	}
}

// ServeHTTP upgrades the request and processes frames until the client disconnects.
func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var reply FrameReply
		out, err := h.proc.ProcessJSON(ctx, data)
		switch {
		case err != nil:
			reply.Error = err.Error()
			h.logger.Debug().Err(err).Msg("frame rejected")
		case out.Err != nil:
			reply.Error = out.Err.Error()
		}
		reply.Result = out.Result
		reply.Event = out.Event

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}
