package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mirae-imaging/backoffice/internal/logger"
)

type contextKey string

// AdminEmailKey is the gin context key for the authenticated admin email.
const AdminEmailKey contextKey = "admin_email"

// Middleware guards admin routes with session token validation.
type Middleware struct {
	service *Service
}

// NewMiddleware creates an auth middleware around the given service.
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// RequireAuth validates the Bearer token and attaches the admin email to
// the request context.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		// Browser WebSocket API can't set custom headers during upgrade,
		// so the console passes the token as a query parameter.
		if authHeader == "" && c.Request.Header.Get("Upgrade") == "websocket" {
			token := c.Query("token")
			if token != "" {
				authHeader = "Bearer " + token
			}
		}

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a Bearer token"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token is empty"})
			c.Abort()
			return
		}

		email, err := m.service.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		ctx := logger.WithAdminEmail(c.Request.Context(), email)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(AdminEmailKey), email)

		c.Next()
	}
}

// GetAdminEmail extracts the authenticated admin email from the gin
// context.
func GetAdminEmail(c *gin.Context) (string, bool) {
	v, exists := c.Get(string(AdminEmailKey))
	if !exists {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
