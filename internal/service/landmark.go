package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
)

// LandmarkStore is the landmark data-access surface LandmarkService depends on.
type LandmarkStore interface {
	LandmarksForAnalysis(ctx context.Context, analysisID string) ([]models.Landmark, error)
	CreateCopyChild(ctx context.Context, parentID, userID, analysisID string) (*models.Landmark, error)
}

// LandmarkService exposes landmark reads and the copy-on-fork operation.
type LandmarkService struct {
	landmarks LandmarkStore
	log       *logrus.Logger
}

// NewLandmarkService creates a LandmarkService.
func NewLandmarkService(landmarks LandmarkStore, log *logrus.Logger) *LandmarkService {
	return &LandmarkService{landmarks: landmarks, log: log}
}

// ListForAnalysis returns the landmarks owned by an analysis (pass-through).
func (s *LandmarkService) ListForAnalysis(ctx context.Context, analysisID string) ([]models.Landmark, error) {
	return s.landmarks.LandmarksForAnalysis(ctx, analysisID)
}

// Fork creates a copy-child of a landmark under a new analysis.
func (s *LandmarkService) Fork(ctx context.Context, parentID, userID, analysisID string) (*models.Landmark, error) {
	child, err := s.landmarks.CreateCopyChild(ctx, parentID, userID, analysisID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"action":      "landmark.fork",
		"parent_id":   parentID,
		"child_id":    child.ID,
		"analysis_id": analysisID,
		"user_id":     userID,
	}).Info("audit")

	return child, nil
}
