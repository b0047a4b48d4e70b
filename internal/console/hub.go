package console

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/notify"
)

// Frame types pushed to connected consoles.
const (
	FrameTypeNotification      = "notification"
	FrameTypePermissionRequest = "permission_request"
)

// Frame is one message pushed to a console over the WebSocket.
type Frame struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// clientFrame is what a console sends back, currently only permission
// state reports.
type clientFrame struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
}

// Hub manages console WebSocket connections and tracks each console's
// reported desktop notification permission. It satisfies
// notify.DesktopNotifier: toasts go to consoles that granted permission.
type Hub struct {
	// connections maps WebSocket connection -> reported permission state
	connections map[*websocket.Conn]notify.Permission

	// connToEmail maps WebSocket connection -> admin email (for logging)
	connToEmail map[*websocket.Conn]string

	mu     sync.RWMutex
	logger *logger.Logger
}

// NewHub creates an empty console hub.
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[*websocket.Conn]notify.Permission),
		connToEmail: make(map[*websocket.Conn]string),
		logger:      logger,
	}
}

// Register adds a console connection. Permission starts at default until
// the console reports otherwise.
func (h *Hub) Register(email string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[conn] = notify.PermissionDefault
	h.connToEmail[conn] = email

	h.logger.WithComponent("console-hub").Debug("console connected",
		slog.String("admin_email", email),
		slog.Int("connections", len(h.connections)))
}

// Unregister removes a console connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	email := h.connToEmail[conn]
	delete(h.connections, conn)
	delete(h.connToEmail, conn)

	h.logger.WithComponent("console-hub").Debug("console disconnected",
		slog.String("admin_email", email),
		slog.Int("connections", len(h.connections)))
}

// SetPermission records the permission state a console reported.
func (h *Hub) SetPermission(conn *websocket.Conn, p notify.Permission) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn]; !ok {
		return
	}
	h.connections[conn] = p

	h.logger.WithComponent("console-hub").Debug("console permission updated",
		slog.String("admin_email", h.connToEmail[conn]),
		slog.String("permission", string(p)))
}

// Permission aggregates across connected consoles: granted if any console
// granted, default if any console has not decided yet, denied otherwise.
// No connections counts as denied; there is nowhere to show a toast.
func (h *Hub) Permission() notify.Permission {
	h.mu.RLock()
	defer h.mu.RUnlock()

	agg := notify.PermissionDenied
	for _, p := range h.connections {
		switch p {
		case notify.PermissionGranted:
			return notify.PermissionGranted
		case notify.PermissionDefault:
			agg = notify.PermissionDefault
		}
	}
	return agg
}

// RequestPermission prompts every undecided console and returns the
// aggregate state. Consoles answer asynchronously over the socket, so the
// returned state usually still reads default; later toasts see the
// updated answer.
func (h *Hub) RequestPermission() (notify.Permission, error) {
	h.broadcast(Frame{Type: FrameTypePermissionRequest}, notify.PermissionDefault)
	return h.Permission(), nil
}

// Show pushes a toast frame to every console that granted permission.
func (h *Hub) Show(title, message string) error {
	h.broadcast(Frame{Type: FrameTypeNotification, Title: title, Message: message}, notify.PermissionGranted)
	return nil
}

// broadcast writes frame to every connection in the given permission
// state.
func (h *Hub) broadcast(frame Frame, state notify.Permission) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.connections))
	for conn, p := range h.connections {
		if p == state {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	frameBytes, err := json.Marshal(frame)
	if err != nil {
		h.logger.WithComponent("console-hub").Error("failed to marshal frame",
			slog.String("error", err.Error()))
		return
	}

	log := h.logger.WithComponent("console-hub")
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, frameBytes); err != nil {
			log.Error("failed to push frame",
				slog.String("frame_type", frame.Type),
				slog.String("error", err.Error()))
			continue
		}
	}
}

// ConnectionCount returns the number of connected consoles.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
