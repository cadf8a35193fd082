package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
)

// ResourceHandler serves generic resource CRUD endpoints.
type ResourceHandler struct {
	repo ResourceRepository
	log  *logrus.Logger
}

// NewResourceHandler creates a ResourceHandler with the given repository and logger.
func NewResourceHandler(repo ResourceRepository, log *logrus.Logger) *ResourceHandler {
	return &ResourceHandler{repo: repo, log: log}
}

// List handles GET /api/v1/resources.
func (h *ResourceHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		return
	}

	kind := models.ResourceKind(c.Query("kind"))
	if !kind.Valid() {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown resource kind")

		return
	}

	limit := parseInt(c.DefaultQuery("limit", "50"), 50)
	offset := parseOffset(c.DefaultQuery("offset", "0"))

	resources, hasMore, err := h.repo.ListResourcesByKind(c.Request.Context(), kind, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("listing resources")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "resource.list", "user_id": userID, "kind": kind, "count": len(resources)}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"resources": resources, "has_more": hasMore})
}

// Get handles GET /api/v1/resources/:id.
func (h *ResourceHandler) Get(c *gin.Context) {
	resourceID := c.Param("id")
	if err := validatePathID(resourceID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	resource, err := h.repo.GetResource(c.Request.Context(), resourceID)
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")

			return
		}

		h.log.WithError(err).Error("getting resource")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "resource.get", "user_id": userID, "resource_id": resourceID}).Info("audit")

	c.JSON(http.StatusOK, resource)
}

// Create handles POST /api/v1/resources.
func (h *ResourceHandler) Create(c *gin.Context) {
	var req models.CreateResourceRequest
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

	resource, err := h.repo.CreateResource(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			respondError(c, http.StatusConflict, ErrCodeConflict, "resource with this ID already exists")

			return
		}

		h.log.WithError(err).Error("creating resource")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "resource.create", "user_id": userID, "resource_id": resource.ID}).Info("audit")

	c.JSON(http.StatusCreated, resource)
}

// Update handles PUT /api/v1/resources/:id.
func (h *ResourceHandler) Update(c *gin.Context) {
	resourceID := c.Param("id")
	if err := validatePathID(resourceID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req models.UpdateResourceRequest
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

	resource, err := h.repo.UpdateResource(c.Request.Context(), resourceID, req)
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")

			return
		}

		h.log.WithError(err).Error("updating resource")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "resource.update", "user_id": userID, "resource_id": resourceID}).Info("audit")

	c.JSON(http.StatusOK, resource)
}

// Delete handles DELETE /api/v1/resources/:id.
func (h *ResourceHandler) Delete(c *gin.Context) {
	resourceID := c.Param("id")
	if err := validatePathID(resourceID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	resource, err := h.repo.DeleteResource(c.Request.Context(), resourceID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrResourceNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
		case errors.Is(err, models.ErrResourceReferenced):
			respondError(c, http.StatusConflict, ErrCodeConflict, "resource is referenced by other resources")
		default:
			h.log.WithError(err).Error("deleting resource")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		}

		return
	}

	h.log.WithFields(logrus.Fields{"action": "resource.delete", "user_id": userID, "resource_id": resourceID}).Info("audit")

	c.JSON(http.StatusOK, resource)
}
