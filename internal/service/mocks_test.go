package service_test

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/extract"
	"github.com/waymarkhq/waymark/internal/models"
	"github.com/waymarkhq/waymark/internal/pipeline"
)

type mockResourceStore struct {
	createFn func(req models.CreateResourceRequest) (*models.Resource, error)
	getFn    func(id string) (*models.Resource, error)
	updateFn func(id string, req models.UpdateResourceRequest) (*models.Resource, error)
	listFn   func(kind models.ResourceKind, limit, offset int) ([]models.Resource, bool, error)
}

func (m *mockResourceStore) CreateResource(_ context.Context, req models.CreateResourceRequest) (*models.Resource, error) {
	return m.createFn(req)
}

func (m *mockResourceStore) GetResource(_ context.Context, id string) (*models.Resource, error) {
	return m.getFn(id)
}

func (m *mockResourceStore) UpdateResource(_ context.Context, id string, req models.UpdateResourceRequest) (*models.Resource, error) {
	return m.updateFn(id, req)
}

func (m *mockResourceStore) ListResourcesByKind(_ context.Context, kind models.ResourceKind, limit, offset int) ([]models.Resource, bool, error) {
	if m.listFn != nil {
		return m.listFn(kind, limit, offset)
	}

	return nil, false, nil
}

type mockRelationStore struct {
	createFn func(req models.CreateRelationRequest) (*models.Relation, error)
	linkFn   func(req models.CreateRelationRequest) (*models.Relation, error)
}

func (m *mockRelationStore) CreateRelation(_ context.Context, req models.CreateRelationRequest) (*models.Relation, error) {
	if m.createFn != nil {
		return m.createFn(req)
	}

	return &models.Relation{OriginID: req.OriginID, TargetID: req.TargetID, Type: req.Type}, nil
}

func (m *mockRelationStore) LinkIfAbsent(_ context.Context, req models.CreateRelationRequest) (*models.Relation, error) {
	if m.linkFn != nil {
		return m.linkFn(req)
	}

	return &models.Relation{OriginID: req.OriginID, TargetID: req.TargetID, Type: req.Type}, nil
}

type mockInteractionStore struct {
	recordFn func(userID, resourceID, interactionType string, interactionDate time.Time) (*models.Interaction, error)
}

func (m *mockInteractionStore) RecordInteraction(_ context.Context, userID, resourceID, interactionType string, interactionDate time.Time, _ float64) (*models.Interaction, error) {
	if m.recordFn != nil {
		return m.recordFn(userID, resourceID, interactionType, interactionDate)
	}

	return &models.Interaction{UserID: userID, ResourceID: resourceID, InteractionType: interactionType, InteractionDate: interactionDate}, nil
}

type mockQualifier struct {
	qualifyFn func(content string) (*extract.QualifyResult, error)
}

func (m *mockQualifier) Qualify(_ context.Context, _ string, content string) (*extract.QualifyResult, error) {
	return m.qualifyFn(content)
}

type mockRunner struct {
	runFn func(req pipeline.RunRequest) (*pipeline.RunResult, error)
}

func (m *mockRunner) Run(_ context.Context, req pipeline.RunRequest) (*pipeline.RunResult, error) {
	if m.runFn != nil {
		return m.runFn(req)
	}

	return &pipeline.RunResult{AnalysisID: req.AnalysisID}, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}
