package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
	"github.com/waymarkhq/waymark/internal/service"
)

// LensHandler serves lens endpoints. Lens mutations that retarget a lens
// trigger a detached pipeline run; handlers return before the run finishes
// and progress is observable on the event stream.
type LensHandler struct {
	lenses LensManager
	log    *logrus.Logger
}

// NewLensHandler creates a LensHandler with the given manager and logger.
func NewLensHandler(lenses LensManager, log *logrus.Logger) *LensHandler {
	return &LensHandler{lenses: lenses, log: log}
}

// Create handles POST /api/v1/lenses.
func (h *LensHandler) Create(c *gin.Context) {
	var req service.CreateLensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	lens, err := h.lenses.Create(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "journal or target trace not found")

			return
		}

		h.log.WithError(err).Error("creating lens")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "lens.create", "user_id": userID, "lens_id": lens.ID}).Info("audit")

	c.JSON(http.StatusCreated, lens)
}

// Get handles GET /api/v1/lenses/:id.
func (h *LensHandler) Get(c *gin.Context) {
	lensID := c.Param("id")
	if err := validatePathID(lensID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	lens, err := h.lenses.Get(c.Request.Context(), lensID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrResourceNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "lens not found")
		case errors.Is(err, models.ErrKindMismatch):
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "resource is not a lens")
		default:
			h.log.WithError(err).Error("getting lens")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		}

		return
	}

	h.log.WithFields(logrus.Fields{"action": "lens.get", "user_id": userID, "lens_id": lensID}).Info("audit")

	c.JSON(http.StatusOK, lens)
}

// setTargetRequest is the lens retargeting payload.
type setTargetRequest struct {
	TraceID string `json:"trace_id"`
}

// SetTarget handles PUT /api/v1/lenses/:id/target.
func (h *LensHandler) SetTarget(c *gin.Context) {
	lensID := c.Param("id")
	if err := validatePathID(lensID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req setTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.TraceID == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "trace_id is required")

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	lens, err := h.lenses.SetTarget(c.Request.Context(), lensID, req.TraceID, userID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrResourceNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "lens or trace not found")
		case errors.Is(err, models.ErrKindMismatch):
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "resource is not a lens")
		default:
			h.log.WithError(err).Error("retargeting lens")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		}

		return
	}

	h.log.WithFields(logrus.Fields{"action": "lens.set_target", "user_id": userID, "lens_id": lensID, "trace_id": req.TraceID}).Info("audit")

	c.JSON(http.StatusOK, lens)
}

// Replay handles POST /api/v1/lenses/:id/replay. It queues a fresh analysis
// of the lens target and returns immediately.
func (h *LensHandler) Replay(c *gin.Context) {
	lensID := c.Param("id")
	if err := validatePathID(lensID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	lens, err := h.lenses.Replay(c.Request.Context(), lensID, userID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrResourceNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "lens not found")
		case errors.Is(err, models.ErrKindMismatch):
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "resource is not a lens")
		default:
			h.log.WithError(err).Error("replaying lens")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		}

		return
	}

	h.log.WithFields(logrus.Fields{"action": "lens.replay", "user_id": userID, "lens_id": lensID}).Info("audit")

	c.JSON(http.StatusAccepted, lens)
}
