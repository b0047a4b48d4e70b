package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mirae-imaging/backoffice/internal/logger"
)

// SignInRequest is the admin signin payload.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Handler handles HTTP requests for authentication.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// SignIn handles POST /api/v1/auth/signin
func (h *Handler) SignIn(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("auth-handler")

	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	token, err := h.service.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		case errors.Is(err, ErrEmailNotConfirmed):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "email not confirmed"})
		case errors.Is(err, ErrNotAdmin):
			c.JSON(http.StatusForbidden, gin.H{"error": "account is not an administrator"})
		default:
			log.Error("signin failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signin failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me handles GET /api/v1/admin/me
// Requires the auth middleware.
func (h *Handler) Me(c *gin.Context) {
	email, ok := GetAdminEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email})
}
