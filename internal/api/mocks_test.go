package api_test

import (
	"context"
	"time"

	"github.com/waymarkhq/waymark/internal/models"
	"github.com/waymarkhq/waymark/internal/service"
)

type mockResourceRepo struct {
	createFn func(req models.CreateResourceRequest) (*models.Resource, error)
	getFn    func(id string) (*models.Resource, error)
	updateFn func(id string, req models.UpdateResourceRequest) (*models.Resource, error)
	deleteFn func(id string) (*models.Resource, error)
	listFn   func(kind models.ResourceKind, limit, offset int) ([]models.Resource, bool, error)
}

func (m *mockResourceRepo) CreateResource(_ context.Context, req models.CreateResourceRequest) (*models.Resource, error) {
	return m.createFn(req)
}

func (m *mockResourceRepo) GetResource(_ context.Context, id string) (*models.Resource, error) {
	return m.getFn(id)
}

func (m *mockResourceRepo) UpdateResource(_ context.Context, id string, req models.UpdateResourceRequest) (*models.Resource, error) {
	return m.updateFn(id, req)
}

func (m *mockResourceRepo) DeleteResource(_ context.Context, id string) (*models.Resource, error) {
	return m.deleteFn(id)
}

func (m *mockResourceRepo) ListResourcesByKind(_ context.Context, kind models.ResourceKind, limit, offset int) ([]models.Resource, bool, error) {
	return m.listFn(kind, limit, offset)
}

type mockRelationRepo struct {
	createFn func(req models.CreateRelationRequest) (*models.Relation, error)
	fromFn   func(originID string, typeFilter models.RelationType) ([]models.Relation, error)
	toFn     func(targetID string, typeFilter models.RelationType) ([]models.Relation, error)
	deleteFn func(relationID string) error
}

func (m *mockRelationRepo) CreateRelation(_ context.Context, req models.CreateRelationRequest) (*models.Relation, error) {
	return m.createFn(req)
}

func (m *mockRelationRepo) RelationsFrom(_ context.Context, originID string, typeFilter models.RelationType) ([]models.Relation, error) {
	return m.fromFn(originID, typeFilter)
}

func (m *mockRelationRepo) RelationsTo(_ context.Context, targetID string, typeFilter models.RelationType) ([]models.Relation, error) {
	return m.toFn(targetID, typeFilter)
}

func (m *mockRelationRepo) DeleteRelation(_ context.Context, relationID string) error {
	return m.deleteFn(relationID)
}

type mockReferenceRepo struct {
	forMirrorFn func(traceMirrorID string) ([]models.Reference, error)
}

func (m *mockReferenceRepo) ReferencesForMirror(_ context.Context, traceMirrorID string) ([]models.Reference, error) {
	return m.forMirrorFn(traceMirrorID)
}

type mockTimelineRepo struct {
	betweenFn func(userID string, from, to time.Time) ([]models.Resource, error)
}

func (m *mockTimelineRepo) TracesBetween(_ context.Context, userID string, from, to time.Time) ([]models.Resource, error) {
	return m.betweenFn(userID, from, to)
}

type mockTraceIngestor struct {
	ingestFn func(userID string, req service.IngestTraceRequest) (*models.Resource, error)
}

func (m *mockTraceIngestor) Ingest(_ context.Context, userID string, req service.IngestTraceRequest) (*models.Resource, error) {
	return m.ingestFn(userID, req)
}

type mockJournalManager struct {
	createFn func(userID, title string) (*models.Resource, error)
	importFn func(userID, journalID, raw string) (*service.ImportReport, error)
}

func (m *mockJournalManager) CreateJournal(_ context.Context, userID, title string) (*models.Resource, error) {
	return m.createFn(userID, title)
}

func (m *mockJournalManager) Import(_ context.Context, userID, journalID, raw string) (*service.ImportReport, error) {
	return m.importFn(userID, journalID, raw)
}

type mockLensManager struct {
	createFn    func(userID string, req service.CreateLensRequest) (*service.Lens, error)
	getFn       func(lensID string) (*service.Lens, error)
	setTargetFn func(lensID, traceID, userID string) (*service.Lens, error)
	replayFn    func(lensID, userID string) (*service.Lens, error)
}

func (m *mockLensManager) Create(_ context.Context, userID string, req service.CreateLensRequest) (*service.Lens, error) {
	return m.createFn(userID, req)
}

func (m *mockLensManager) Get(_ context.Context, lensID string) (*service.Lens, error) {
	return m.getFn(lensID)
}

func (m *mockLensManager) SetTarget(_ context.Context, lensID, traceID, userID string) (*service.Lens, error) {
	return m.setTargetFn(lensID, traceID, userID)
}

func (m *mockLensManager) Replay(_ context.Context, lensID, userID string) (*service.Lens, error) {
	return m.replayFn(lensID, userID)
}

type mockLandmarkManager struct {
	listFn func(analysisID string) ([]models.Landmark, error)
	forkFn func(parentID, userID, analysisID string) (*models.Landmark, error)
}

func (m *mockLandmarkManager) ListForAnalysis(_ context.Context, analysisID string) ([]models.Landmark, error) {
	return m.listFn(analysisID)
}

func (m *mockLandmarkManager) Fork(_ context.Context, parentID, userID, analysisID string) (*models.Landmark, error) {
	return m.forkFn(parentID, userID, analysisID)
}
