package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
)

// JournalHandler serves journal creation and bulk import endpoints.
type JournalHandler struct {
	journals JournalManager
	log      *logrus.Logger
}

// NewJournalHandler creates a JournalHandler with the given manager and logger.
func NewJournalHandler(journals JournalManager, log *logrus.Logger) *JournalHandler {
	return &JournalHandler{journals: journals, log: log}
}

// createJournalRequest is the journal creation payload.
type createJournalRequest struct {
	Title string `json:"title"`
}

// Create handles POST /api/v1/journals.
func (h *JournalHandler) Create(c *gin.Context) {
	var req createJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.Title == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "title is required")

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	journal, err := h.journals.CreateJournal(c.Request.Context(), userID, req.Title)
	if err != nil {
		h.log.WithError(err).Error("creating journal")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{"action": "journal.create", "user_id": userID, "journal_id": journal.ID}).Info("audit")

	c.JSON(http.StatusCreated, journal)
}

// importRequest is the bulk import payload.
type importRequest struct {
	Raw string `json:"raw"`
}

// Import handles POST /api/v1/journals/:id/import. The raw text is segmented
// into header-delimited blocks; each block becomes a trace. Block failures
// are isolated and reported, never aborting the rest of the import.
func (h *JournalHandler) Import(c *gin.Context) {
	journalID := c.Param("id")
	if err := validatePathID(journalID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.Raw == "" {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, "raw is required")

		return
	}

	userID := getUserID(c)
	if userID == "" {
		return
	}

	report, err := h.journals.Import(c.Request.Context(), userID, journalID, req.Raw)
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "journal not found")

			return
		}

		h.log.WithError(err).Error("importing journal")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":     "journal.import",
		"user_id":    userID,
		"journal_id": journalID,
		"created":    report.CreatedCount,
		"failed":     report.FailedCount,
	}).Info("audit")

	c.JSON(http.StatusOK, report)
}
