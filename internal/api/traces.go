package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
	"github.com/waymarkhq/waymark/internal/service"
)

// TraceHandler serves trace ingestion and timeline endpoints.
type TraceHandler struct {
	ingestor   TraceIngestor
	timeline   TimelineRepository
	references ReferenceRepository
	log        *logrus.Logger
}

// NewTraceHandler creates a TraceHandler with the given dependencies.
func NewTraceHandler(ingestor TraceIngestor, timeline TimelineRepository, references ReferenceRepository, log *logrus.Logger) *TraceHandler {
	return &TraceHandler{ingestor: ingestor, timeline: timeline, references: references, log: log}
}

// Ingest handles POST /api/v1/traces.
func (h *TraceHandler) Ingest(c *gin.Context) {
	var req service.IngestTraceRequest
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

	trace, err := h.ingestor.Ingest(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "journal not found")

			return
		}

		h.log.WithError(err).Error("ingesting trace")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "trace.ingest", "user_id": userID, "trace_id": trace.ID}).Info("audit")

	c.JSON(http.StatusCreated, trace)
}

// Timeline handles GET /api/v1/traces/timeline?from=&to=. Bounds are
// RFC 3339 timestamps; the range is half-open [from, to).
func (h *TraceHandler) Timeline(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "from must be an RFC 3339 timestamp")

		return
	}

	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "to must be an RFC 3339 timestamp")

		return
	}

	if !from.Before(to) {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "from must be before to")

		return
	}

	traces, err := h.timeline.TracesBetween(c.Request.Context(), userID, from, to)
	if err != nil {
		h.log.WithError(err).Error("walking trace timeline")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "trace.timeline", "user_id": userID, "count": len(traces)}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"traces": traces})
}

// MirrorReferences handles GET /api/v1/mirrors/:id/references.
func (h *TraceHandler) MirrorReferences(c *gin.Context) {
	mirrorID := c.Param("id")
	if err := validatePathID(mirrorID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	refs, err := h.references.ReferencesForMirror(c.Request.Context(), mirrorID)
	if err != nil {
		h.log.WithError(err).Error("listing mirror references")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "mirror.references", "user_id": userID, "mirror_id": mirrorID, "count": len(refs)}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"references": refs})
}
