package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
)

// LandmarkHandler serves landmark listing and fork endpoints.
type LandmarkHandler struct {
	landmarks LandmarkManager
	log       *logrus.Logger
}

// NewLandmarkHandler creates a LandmarkHandler with the given manager and logger.
func NewLandmarkHandler(landmarks LandmarkManager, log *logrus.Logger) *LandmarkHandler {
	return &LandmarkHandler{landmarks: landmarks, log: log}
}

// ListForAnalysis handles GET /api/v1/analyses/:id/landmarks.
func (h *LandmarkHandler) ListForAnalysis(c *gin.Context) {
	analysisID := c.Param("id")
	if err := validatePathID(analysisID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	landmarks, err := h.landmarks.ListForAnalysis(c.Request.Context(), analysisID)
	if err != nil {
		h.log.WithError(err).Error("listing landmarks for analysis")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "landmark.list", "user_id": userID, "analysis_id": analysisID, "count": len(landmarks)}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"landmarks": landmarks})
}

// forkRequest is the landmark fork payload.
type forkRequest struct {
	AnalysisID string `json:"analysis_id"`
}

// Fork handles POST /api/v1/landmarks/:id/fork. The new landmark starts a
// child version of the parent, owned by the given analysis.
func (h *LandmarkHandler) Fork(c *gin.Context) {
	parentID := c.Param("id")
	if err := validatePathID(parentID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req forkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.AnalysisID == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "analysis_id is required")

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	child, err := h.landmarks.Fork(c.Request.Context(), parentID, userID, req.AnalysisID)
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "parent landmark not found")

			return
		}

		h.log.WithError(err).Error("forking landmark")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":    "landmark.fork",
		"user_id":   userID,
		"parent_id": parentID,
		"child_id":  child.ID,
	}).Info("audit")

	c.JSON(http.StatusCreated, child)
}
