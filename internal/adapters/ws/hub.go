// Package ws streams session events to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

// SinkName identifies the hub in metrics and logs.
const SinkName = "stream"

const defaultSendBuffer = 64

// ErrClosed is returned by Serve after Close.
var ErrClosed = errors.New("ws: hub closed")

// Hub fans session events out to connected clients. A client subscribes to a
// single session, or to every session when its session id is empty.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	upgrader   websocket.Upgrader
	sendBuffer int
	logger     logger.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithSendBuffer sets the per-client outbound buffer. Clients that fall
// further behind are dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithCheckOrigin overrides the upgrader origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		sendBuffer: defaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logger.Get().Named("stream")
	return h
}

// Name implements worker.Sink.
func (h *Hub) Name() string { return SinkName }

// Serve upgrades the request and blocks until the client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}
	c := newClient(h, conn, sessionID, h.sendBuffer)
	if !h.register(c) {
		_ = conn.Close()
		return ErrClosed
	}
	h.logger.Debug(r.Context(), "stream client connected", logger.String("session_id", sessionID))
	c.run()
	return nil
}

// Publish implements worker.Sink. Slow clients are disconnected rather than
// allowed to block delivery.
func (h *Hub) Publish(ctx context.Context, e model.SessionEvent) error { //nolint:gocritic // hugeParam: matches Sink
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.sessionID != "" && c.sessionID != e.SessionID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.dropLocked(c)
			h.logger.Warn(ctx, "dropped slow stream client", logger.String("session_id", c.sessionID))
		}
	}
	metrics.UpdateStreamClients(len(h.clients))
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
	metrics.UpdateStreamClients(0)
	return nil
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.UpdateStreamClients(len(h.clients))
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
	metrics.UpdateStreamClients(len(h.clients))
}

// dropLocked removes c and closes its send channel, which makes the write
// pump send a close frame. Callers hold h.mu.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}
