package devserver

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 10 * time.Second

// reloadMessage is the payload browsers listen for on the reload socket.
const reloadMessage = "reload"

// ReloadHub tracks connected browsers and broadcasts a reload message after
// a successful rebuild. Payload contents are the client script's concern,
// the hub only signals.
type ReloadHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

func NewReloadHub() *ReloadHub {
	return &ReloadHub{
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handle upgrades the request and parks the connection until the browser
// goes away.
func (h *ReloadHub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// local dev server, pages are served from another localhost port
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("reload accept", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	slog.Debug("reload client connected", "total", total)

	// Reads only serve to detect disconnect; browsers never send.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	total = len(h.clients)
	h.mu.Unlock()

	conn.Close(websocket.StatusNormalClosure, "")
	slog.Debug("reload client disconnected", "total", total)
}

// Broadcast tells every connected browser to reload.
func (h *ReloadHub) Broadcast(ctx context.Context) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}
	slog.Info("reload", "clients", len(conns))

	for _, conn := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		if err := conn.Write(wctx, websocket.MessageText, []byte(reloadMessage)); err != nil {
			slog.Debug("reload write failed", "error", err)
		}
		cancel()
	}
}

// Shutdown closes all connected clients.
func (h *ReloadHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close(websocket.StatusGoingAway, "shutdown")
	}
	h.clients = make(map[*websocket.Conn]struct{})
}
