package reservation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mirae-imaging/backoffice/internal/logger"
)

// Handler handles HTTP requests for reservation operations.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new reservation handler.
func NewHandler(service *Service, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Create handles POST /api/v1/reservations
// Public booking form endpoint; no auth required.
func (h *Handler) Create(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("reservation-handler")

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	r, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		log.Error("failed to create reservation", slog.String("error", err.Error()))
		// The booking form shows this together with a call-the-clinic fallback.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reservation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reservation": r})
}

// List handles GET /api/v1/admin/reservations
func (h *Handler) List(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("reservation-handler")

	reservations, err := h.service.List(c.Request.Context())
	if err != nil {
		log.Error("failed to list reservations", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reservations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": reservations, "count": len(reservations)})
}

// UpdateStatus handles PATCH /api/v1/admin/reservations/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("reservation-handler")

	id := c.Param("id")

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	r, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
			return
		}
		log.Error("failed to update reservation status",
			slog.String("error", err.Error()),
			slog.String("reservation_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update reservation status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation": r})
}

// ListByPatient handles GET /api/v1/admin/reservations/patient
func (h *Handler) ListByPatient(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("reservation-handler")

	name := c.Query("name")
	phone := c.Query("phone")
	if name == "" || phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and phone query parameters are required"})
		return
	}

	reservations, err := h.service.ListByPatient(c.Request.Context(), name, phone)
	if err != nil {
		log.Error("failed to list reservations by patient", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reservations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": reservations, "count": len(reservations)})
}

// Patients handles GET /api/v1/admin/patients
// Returns the per-patient rollup derived from the reservation list.
func (h *Handler) Patients(c *gin.Context) {
	log := h.logger.WithContext(c.Request.Context()).WithComponent("reservation-handler")

	patients, err := h.service.Patients(c.Request.Context())
	if err != nil {
		log.Error("failed to build patient rollup", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build patient rollup"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"patients": patients, "count": len(patients)})
}
