package api

import (
	"context"
	"time"

	"github.com/waymarkhq/waymark/internal/models"
	"github.com/waymarkhq/waymark/internal/service"
)

// ResourceRepository defines resource operations used by ResourceHandler.
type ResourceRepository interface {
	CreateResource(ctx context.Context, req models.CreateResourceRequest) (*models.Resource, error)
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	UpdateResource(ctx context.Context, id string, req models.UpdateResourceRequest) (*models.Resource, error)
	DeleteResource(ctx context.Context, id string) (*models.Resource, error)
	ListResourcesByKind(ctx context.Context, kind models.ResourceKind, limit, offset int) ([]models.Resource, bool, error)
}

// RelationRepository defines relation operations used by RelationHandler.
type RelationRepository interface {
	CreateRelation(ctx context.Context, req models.CreateRelationRequest) (*models.Relation, error)
	RelationsFrom(ctx context.Context, originID string, typeFilter models.RelationType) ([]models.Relation, error)
	RelationsTo(ctx context.Context, targetID string, typeFilter models.RelationType) ([]models.Relation, error)
	DeleteRelation(ctx context.Context, relationID string) error
}

// ReferenceRepository defines reference lookups used by TraceHandler.
type ReferenceRepository interface {
	ReferencesForMirror(ctx context.Context, traceMirrorID string) ([]models.Reference, error)
}

// TimelineRepository defines the interaction timeline walk used by TraceHandler.
type TimelineRepository interface {
	TracesBetween(ctx context.Context, userID string, from, to time.Time) ([]models.Resource, error)
}

// TraceIngestor defines trace ingestion used by TraceHandler.
type TraceIngestor interface {
	Ingest(ctx context.Context, userID string, req service.IngestTraceRequest) (*models.Resource, error)
}

// JournalManager defines journal operations used by JournalHandler.
type JournalManager interface {
	CreateJournal(ctx context.Context, userID, title string) (*models.Resource, error)
	Import(ctx context.Context, userID, journalID, raw string) (*service.ImportReport, error)
}

// LensManager defines lens operations used by LensHandler.
type LensManager interface {
	Create(ctx context.Context, userID string, req service.CreateLensRequest) (*service.Lens, error)
	Get(ctx context.Context, lensID string) (*service.Lens, error)
	SetTarget(ctx context.Context, lensID, traceID, userID string) (*service.Lens, error)
	Replay(ctx context.Context, lensID, userID string) (*service.Lens, error)
}

// LandmarkManager defines landmark operations used by LandmarkHandler.
type LandmarkManager interface {
	ListForAnalysis(ctx context.Context, analysisID string) ([]models.Landmark, error)
	Fork(ctx context.Context, parentID, userID, analysisID string) (*models.Landmark, error)
}
