package board

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mirae-imaging/backoffice/internal/auth"
	"github.com/mirae-imaging/backoffice/internal/logger"
)

// Handler handles HTTP requests for board operations.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new board handler.
func NewHandler(service *Service, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// ListPublic handles GET /api/v1/board
// Public listing; drafts are excluded.
func (h *Handler) ListPublic(c *gin.Context) {
	h.list(c, true)
}

// ListAll handles GET /api/v1/admin/board
func (h *Handler) ListAll(c *gin.Context) {
	h.list(c, false)
}

func (h *Handler) list(c *gin.Context, publishedOnly bool) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("board-handler")

	category := Category(c.Query("category"))

	var (
		posts []Post
		err   error
	)
	if publishedOnly {
		posts, err = h.service.ListPublic(c.Request.Context(), category)
	} else {
		posts, err = h.service.ListAll(c.Request.Context(), category)
	}
	if err != nil {
		if category != "" && !category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
			return
		}
		log.Error("failed to list posts", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

// Get handles GET /api/v1/board/:id
func (h *Handler) Get(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("board-handler")

	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		log.Error("failed to get post", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": p})
}

// Create handles POST /api/v1/admin/board
func (h *Handler) Create(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("board-handler")

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	author, ok := auth.GetAdminEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req, author)
	if err != nil {
		if !req.Category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
			return
		}
		log.Error("failed to create post", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"post": p})
}

// Update handles PATCH /api/v1/admin/board/:id
func (h *Handler) Update(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("board-handler")

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	p, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		if req.Category != nil && !req.Category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
			return
		}
		log.Error("failed to update post", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": p})
}

// Delete handles DELETE /api/v1/admin/board/:id
func (h *Handler) Delete(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("board-handler")

	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		log.Error("failed to delete post", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}
