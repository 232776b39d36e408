// Package ws implements the WebSocket observer feed: connected clients
// receive a mirror of every orchestration event as it is emitted.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds one broadcast write so a stalled observer cannot hold
// the hub lock indefinitely.
const writeTimeout = 5 * time.Second

// Envelope wraps every message sent to observers.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type observer struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Hub tracks connected observers and fans orchestration events out to them.
// Observers are read-only; inbound frames are drained and discarded.
type Hub struct {
	mu        sync.RWMutex
	observers map[*observer]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{observers: make(map[*observer]struct{})}
}

// HandleWS upgrades the request and registers the connection as an observer
// until it disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The request context is canceled as soon as this handler returns; the
	// hijacked connection has to outlive it.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	obs := &observer{ws: ws, cancel: cancel}

	h.mu.Lock()
	h.observers[obs] = struct{}{}
	h.mu.Unlock()

	slog.Info("observer connected", "remote", r.RemoteAddr)

	// Read loop only detects disconnects and consumes control frames.
	go func() {
		defer func() {
			h.remove(obs)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends one envelope to every observer. A failed write drops that
// observer; the remaining observers are unaffected.
func (h *Hub) Broadcast(ctx context.Context, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("marshal observer envelope", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for obs := range h.observers {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := obs.ws.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Debug("observer write failed", "error", err)
			go h.remove(obs)
		}
	}
}

// ObserverCount returns the number of connected observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

func (h *Hub) remove(obs *observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.observers[obs]; ok {
		obs.cancel()
		delete(h.observers, obs)
		slog.Info("observer disconnected")
	}
}
