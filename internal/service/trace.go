// Package service provides business logic between API handlers and data
// stores, and owns the pipeline trigger points.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/extract"
	"github.com/waymarkhq/waymark/internal/models"
)

// ResourceStore is the resource data-access surface the services depend on.
type ResourceStore interface {
	CreateResource(ctx context.Context, req models.CreateResourceRequest) (*models.Resource, error)
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	UpdateResource(ctx context.Context, id string, req models.UpdateResourceRequest) (*models.Resource, error)
	ListResourcesByKind(ctx context.Context, kind models.ResourceKind, limit, offset int) ([]models.Resource, bool, error)
}

// RelationStore is the relation data-access surface the services depend on.
type RelationStore interface {
	CreateRelation(ctx context.Context, req models.CreateRelationRequest) (*models.Relation, error)
	LinkIfAbsent(ctx context.Context, req models.CreateRelationRequest) (*models.Relation, error)
}

// InteractionStore records authorship interactions.
type InteractionStore interface {
	RecordInteraction(ctx context.Context, userID, resourceID, interactionType string, interactionDate time.Time, progress float64) (*models.Interaction, error)
}

// Qualifier infers a trace header from its raw content.
type Qualifier interface {
	Qualify(ctx context.Context, analysisID, content string) (*extract.QualifyResult, error)
}

// LensTrigger is notified when a posted trace may retarget autoplaying lenses.
type LensTrigger interface {
	OnTracePosted(ctx context.Context, journalID, traceID, userID string)
}

// IngestTraceRequest is the trace ingestion payload.
type IngestTraceRequest struct {
	Content   string `json:"content"`
	JournalID string `json:"journal_id"`
}

// Validate checks the ingestion payload.
func (r *IngestTraceRequest) Validate() error {
	if r.Content == "" {
		return fmt.Errorf("content is required")
	}

	if r.JournalID == "" {
		return fmt.Errorf("journal_id is required")
	}

	return nil
}

// TraceService ingests traces: qualification, persistence, lens triggering.
type TraceService struct {
	resources    ResourceStore
	relations    RelationStore
	interactions InteractionStore
	qualifier    Qualifier
	lenses       LensTrigger
	log          *logrus.Logger
}

// NewTraceService creates a TraceService.
func NewTraceService(
	resources ResourceStore,
	relations RelationStore,
	interactions InteractionStore,
	qualifier Qualifier,
	lenses LensTrigger,
	log *logrus.Logger,
) *TraceService {
	return &TraceService{
		resources:    resources,
		relations:    relations,
		interactions: interactions,
		qualifier:    qualifier,
		lenses:       lenses,
		log:          log,
	}
}

// Ingest qualifies and persists one trace, then notifies the lens layer.
// This single-entity operation fails closed: on any error no half-linked
// trace remains visible to triggers.
func (s *TraceService) Ingest(ctx context.Context, userID string, req IngestTraceRequest) (*models.Resource, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.resources.GetResource(ctx, req.JournalID); err != nil {
		return nil, fmt.Errorf("loading journal %s: %w", req.JournalID, err)
	}

	qualified, err := s.qualifier.Qualify(ctx, "", req.Content)
	if err != nil {
		return nil, fmt.Errorf("qualifying trace: %w", err)
	}

	entryDate := time.Now()
	if qualified.Date != "" {
		if parsed, perr := time.Parse("2006-01-02", qualified.Date); perr == nil {
			entryDate = parsed
		}
	}

	trace, err := s.resources.CreateResource(ctx, models.CreateResourceRequest{
		Kind:     models.KindTrace,
		Title:    qualified.Title,
		Subtitle: qualified.Subtitle,
		Content:  req.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("creating trace: %w", err)
	}

	if _, err := s.relations.CreateRelation(ctx, models.CreateRelationRequest{
		OriginID: trace.ID,
		TargetID: req.JournalID,
		Type:     models.RelationJournalItem,
		UserID:   userID,
	}); err != nil {
		return nil, fmt.Errorf("linking trace to journal: %w", err)
	}

	if _, err := s.interactions.RecordInteraction(ctx,
		userID, trace.ID, models.InteractionOutput, entryDate, 0); err != nil {
		return nil, fmt.Errorf("recording trace authorship: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"action":     "trace.ingest",
		"trace_id":   trace.ID,
		"journal_id": req.JournalID,
		"user_id":    userID,
	}).Info("audit")

	if s.lenses != nil {
		s.lenses.OnTracePosted(ctx, req.JournalID, trace.ID, userID)
	}

	return trace, nil
}
