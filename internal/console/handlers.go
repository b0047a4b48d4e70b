package console

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mirae-imaging/backoffice/internal/auth"
	"github.com/mirae-imaging/backoffice/internal/logger"
	"github.com/mirae-imaging/backoffice/internal/notify"
)

// Handler handles the console WebSocket and the notification inbox.
type Handler struct {
	hub      *Hub
	store    *notify.Store
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewHandler creates a console handler. checkOrigin guards the WebSocket
// upgrade; pass nil to accept any origin (local development).
func NewHandler(hub *Hub, store *notify.Store, checkOrigin func(r *http.Request) bool, logger *logger.Logger) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub:   hub,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Connect handles GET /api/v1/admin/console/ws
// Upgrades to a WebSocket, registers the console with the hub and reads
// permission reports until the console disconnects.
func (h *Handler) Connect(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("console-handler")

	email, ok := auth.GetAdminEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("failed to upgrade connection", slog.String("error", err.Error()))
		return
	}

	h.hub.Register(email, conn)
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("console read failed", slog.String("error", err.Error()))
			}
			return
		}

		if frame.Type == "permission" {
			switch p := notify.Permission(frame.State); p {
			case notify.PermissionGranted, notify.PermissionDenied, notify.PermissionDefault:
				h.hub.SetPermission(conn, p)
			default:
				log.Warn("console reported unknown permission state",
					slog.String("state", frame.State))
			}
		}
	}
}

// ListNotifications handles GET /api/v1/admin/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.store.List(),
		"unread_count":  h.store.UnreadCount(),
	})
}

// MarkRead handles POST /api/v1/admin/notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	if !h.store.MarkRead(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": h.store.UnreadCount()})
}

// MarkAllRead handles POST /api/v1/admin/notifications/read-all
func (h *Handler) MarkAllRead(c *gin.Context) {
	h.store.MarkAllRead()
	c.JSON(http.StatusOK, gin.H{"unread_count": 0})
}

// Dismiss handles DELETE /api/v1/admin/notifications/:id
func (h *Handler) Dismiss(c *gin.Context) {
	if !h.store.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": h.store.UnreadCount()})
}

// ClearAll handles DELETE /api/v1/admin/notifications
func (h *Handler) ClearAll(c *gin.Context) {
	h.store.ClearAll()
	c.JSON(http.StatusOK, gin.H{"unread_count": 0})
}
