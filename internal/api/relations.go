package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
)

// RelationHandler serves relation endpoints.
type RelationHandler struct {
	repo RelationRepository
	log  *logrus.Logger
}

// NewRelationHandler creates a RelationHandler with the given repository and logger.
func NewRelationHandler(repo RelationRepository, log *logrus.Logger) *RelationHandler {
	return &RelationHandler{repo: repo, log: log}
}

// List handles GET /api/v1/relations. Exactly one of origin or target must
// be supplied; type is an optional filter.
func (h *RelationHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	origin := c.Query("origin")
	target := c.Query("target")

	if (origin == "") == (target == "") {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "exactly one of origin or target is required")

		return
	}

	typeFilter := models.RelationType(c.Query("type"))
	if typeFilter != "" && !typeFilter.Valid() {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown relation type")

		return
	}

	var (
		relations []models.Relation
		err       error
	)

	if origin != "" {
		relations, err = h.repo.RelationsFrom(c.Request.Context(), origin, typeFilter)
	} else {
		relations, err = h.repo.RelationsTo(c.Request.Context(), target, typeFilter)
	}

	if err != nil {
		h.log.WithError(err).Error("listing relations")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "relation.list", "user_id": userID, "count": len(relations)}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"relations": relations})
}

// Create handles POST /api/v1/relations.
func (h *RelationHandler) Create(c *gin.Context) {
	var req models.CreateRelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	// Relations are always attributed to the caller.
	req.UserID = userID

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	relation, err := h.repo.CreateRelation(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrResourceNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "origin or target resource not found")
		case errors.Is(err, models.ErrDuplicateKey):
			respondError(c, http.StatusConflict, ErrCodeConflict, "relation already exists")
		default:
			h.log.WithError(err).Error("creating relation")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		}

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":      "relation.create",
		"user_id":     userID,
		"relation_id": relation.ID,
		"type":        relation.Type,
	}).Info("audit")

	c.JSON(http.StatusCreated, relation)
}

// Delete handles DELETE /api/v1/relations/:id.
func (h *RelationHandler) Delete(c *gin.Context) {
	relationID := c.Param("id")
	if err := validatePathID(relationID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	if err := h.repo.DeleteRelation(c.Request.Context(), relationID); err != nil {
		if errors.Is(err, models.ErrRelationNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "relation not found")

			return
		}

		h.log.WithError(err).Error("deleting relation")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "relation.delete", "user_id": userID, "relation_id": relationID}).Info("audit")

	c.Status(http.StatusNoContent)
}
