package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
)

// ImportBlock is one header-delimited segment of a bulk journal import.
type ImportBlock struct {
	Header string
	Date   string
	Body   string
}

// BlockFailure records why one import block could not become a trace.
type BlockFailure struct {
	BlockIndex int    `json:"block_index"`
	Header     string `json:"header"`
	Error      string `json:"error"`
}

// ImportReport is the batch partial-failure result of a journal import.
type ImportReport struct {
	CreatedCount    int            `json:"created_count"`
	FailedCount     int            `json:"failed_count"`
	TotalBlocks     int            `json:"total_blocks"`
	CreatedTraceIDs []string       `json:"created_trace_ids"`
	Failures        []BlockFailure `json:"failures"`
}

// JournalService manages journals and bulk imports.
type JournalService struct {
	resources    ResourceStore
	relations    RelationStore
	interactions InteractionStore
	log          *logrus.Logger
}

// NewJournalService creates a JournalService.
func NewJournalService(
	resources ResourceStore,
	relations RelationStore,
	interactions InteractionStore,
	log *logrus.Logger,
) *JournalService {
	return &JournalService{
		resources:    resources,
		relations:    relations,
		interactions: interactions,
		log:          log,
	}
}

// CreateJournal creates a journal resource with an authorship interaction.
func (s *JournalService) CreateJournal(ctx context.Context, userID, title string) (*models.Resource, error) {
	journal, err := s.resources.CreateResource(ctx, models.CreateResourceRequest{
		Kind:  models.KindJournal,
		Title: title,
	})
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}

	if _, err := s.interactions.RecordInteraction(ctx,
		userID, journal.ID, models.InteractionOutput, time.Now(), 0); err != nil {
		return nil, fmt.Errorf("recording journal authorship: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"action": "journal.create", "journal_id": journal.ID, "user_id": userID,
	}).Info("audit")

	return journal, nil
}

// headerLine matches a markdown-style heading or a bare date line, the two
// header forms that delimit import blocks.
var headerLine = regexp.MustCompile(`^(#{1,6}\s+.+|\d{4}-\d{2}-\d{2}.*)$`)

var headerDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// SegmentBlocks splits raw journal text into header-delimited blocks. Text
// before the first header becomes a headerless block.
func SegmentBlocks(raw string) []ImportBlock {
	lines := strings.Split(raw, "\n")
	blocks := make([]ImportBlock, 0, 8)

	var current *ImportBlock

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(current.Body)
			blocks = append(blocks, *current)
			current = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if headerLine.MatchString(trimmed) {
			flush()

			current = &ImportBlock{
				Header: strings.TrimLeft(trimmed, "# "),
				Date:   headerDate.FindString(trimmed),
			}

			continue
		}

		if current == nil {
			if trimmed == "" {
				continue
			}

			current = &ImportBlock{}
		}

		current.Body += line + "\n"
	}

	flush()

	return blocks
}

// Import segments raw text and persists each block as a separate trace in
// the journal. A failure on one block never aborts the others; the report
// always satisfies created_count + failed_count == total_blocks.
func (s *JournalService) Import(ctx context.Context, userID, journalID, raw string) (*ImportReport, error) {
	if _, err := s.resources.GetResource(ctx, journalID); err != nil {
		return nil, fmt.Errorf("loading journal %s: %w", journalID, err)
	}

	blocks := SegmentBlocks(raw)
	report := &ImportReport{
		TotalBlocks:     len(blocks),
		CreatedTraceIDs: make([]string, 0, len(blocks)),
	}

	for i, block := range blocks {
		traceID, err := s.importBlock(ctx, userID, journalID, block)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"journal_id":  journalID,
				"block_index": i,
			}).Warn("import block failed")

			report.FailedCount++
			report.Failures = append(report.Failures, BlockFailure{
				BlockIndex: i,
				Header:     block.Header,
				Error:      err.Error(),
			})

			continue
		}

		report.CreatedCount++
		report.CreatedTraceIDs = append(report.CreatedTraceIDs, traceID)
	}

	s.log.WithFields(logrus.Fields{
		"action":     "journal.import",
		"journal_id": journalID,
		"created":    report.CreatedCount,
		"failed":     report.FailedCount,
	}).Info("audit")

	return report, nil
}

func (s *JournalService) importBlock(ctx context.Context, userID, journalID string, block ImportBlock) (string, error) {
	if block.Body == "" {
		return "", fmt.Errorf("block has no body")
	}

	title := block.Header
	if title == "" {
		title = firstLine(block.Body)
	}

	entryDate := time.Now()
	if block.Date != "" {
		if parsed, err := time.Parse("2006-01-02", block.Date); err == nil {
			entryDate = parsed
		}
	}

	trace, err := s.resources.CreateResource(ctx, models.CreateResourceRequest{
		Kind:    models.KindTrace,
		Title:   title,
		Content: block.Body,
	})
	if err != nil {
		return "", fmt.Errorf("creating trace: %w", err)
	}

	if _, err := s.relations.CreateRelation(ctx, models.CreateRelationRequest{
		OriginID: trace.ID,
		TargetID: journalID,
		Type:     models.RelationJournalItem,
		UserID:   userID,
	}); err != nil {
		return "", fmt.Errorf("linking trace to journal: %w", err)
	}

	if _, err := s.interactions.RecordInteraction(ctx,
		userID, trace.ID, models.InteractionOutput, entryDate, 0); err != nil {
		return "", fmt.Errorf("recording trace authorship: %w", err)
	}

	return trace.ID, nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if len(s) > 80 {
		s = s[:80]
	}

	if s == "" {
		s = "Untitled entry"
	}

	return s
}
