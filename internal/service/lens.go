package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/models"
	"github.com/waymarkhq/waymark/internal/pipeline"
)

// Lens property keys inside Resource.Properties.
const (
	propJournalID     = "journal_id"
	propTargetTraceID = "target_trace_id"
	propAutoplay      = "autoplay"
)

// runTimeout bounds one detached pipeline run.
const runTimeout = 10 * time.Minute

// PipelineRunner executes one pipeline run.
type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*pipeline.RunResult, error)
}

// Lens is the typed view of a Resource with kind "lens": a recurring
// analysis target pointing at a trace, optionally autoplaying when new
// traces arrive in its journal.
type Lens struct {
	models.Resource

	JournalID     string `json:"journal_id"`
	TargetTraceID string `json:"target_trace_id,omitempty"`
	Autoplay      bool   `json:"autoplay"`
}

// LensFromResource projects a generic resource into its lens view.
func LensFromResource(r *models.Resource) (*Lens, error) {
	if r.Kind != models.KindLens {
		return nil, fmt.Errorf("%w: resource %s has kind %q", models.ErrKindMismatch, r.ID, r.Kind)
	}

	l := &Lens{Resource: *r}

	if v, ok := r.Properties[propJournalID].(string); ok {
		l.JournalID = v
	}

	if v, ok := r.Properties[propTargetTraceID].(string); ok {
		l.TargetTraceID = v
	}

	if v, ok := r.Properties[propAutoplay].(bool); ok {
		l.Autoplay = v
	}

	return l, nil
}

// CreateLensRequest is the lens creation payload.
type CreateLensRequest struct {
	Title         string `json:"title"`
	JournalID     string `json:"journal_id"`
	TargetTraceID string `json:"target_trace_id,omitempty"`
	Autoplay      bool   `json:"autoplay"`
}

// Validate checks the lens creation payload.
func (r *CreateLensRequest) Validate() error {
	if r.Title == "" {
		return models.ErrMissingTitle
	}

	if r.JournalID == "" {
		return fmt.Errorf("journal_id is required")
	}

	return nil
}

// LensService manages lenses and owns the pipeline trigger points. Runs are
// detached: triggers return immediately while the guard serializes runs per
// lens with latest-wins queueing.
type LensService struct {
	resources    ResourceStore
	relations    RelationStore
	interactions InteractionStore
	runner       PipelineRunner
	guard        *pipeline.Guard
	log          *logrus.Logger
}

// NewLensService creates a LensService.
func NewLensService(
	resources ResourceStore,
	relations RelationStore,
	interactions InteractionStore,
	runner PipelineRunner,
	log *logrus.Logger,
) *LensService {
	return &LensService{
		resources:    resources,
		relations:    relations,
		interactions: interactions,
		runner:       runner,
		guard:        pipeline.NewGuard(),
		log:          log,
	}
}

// Create persists a lens and, when it already has a target, triggers its
// first run.
func (s *LensService) Create(ctx context.Context, userID string, req CreateLensRequest) (*Lens, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.resources.GetResource(ctx, req.JournalID); err != nil {
		return nil, fmt.Errorf("loading journal %s: %w", req.JournalID, err)
	}

	res, err := s.resources.CreateResource(ctx, models.CreateResourceRequest{
		Kind:  models.KindLens,
		Title: req.Title,
		Properties: map[string]any{
			propJournalID:     req.JournalID,
			propTargetTraceID: req.TargetTraceID,
			propAutoplay:      req.Autoplay,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating lens: %w", err)
	}

	if _, err := s.interactions.RecordInteraction(ctx,
		userID, res.ID, models.InteractionOutput, time.Now(), 0); err != nil {
		return nil, fmt.Errorf("recording lens authorship: %w", err)
	}

	lens, err := LensFromResource(res)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"action": "lens.create", "lens_id": lens.ID, "user_id": userID,
	}).Info("audit")

	if lens.TargetTraceID != "" {
		s.trigger(lens, userID)
	}

	return lens, nil
}

// Get loads a lens by id.
func (s *LensService) Get(ctx context.Context, lensID string) (*Lens, error) {
	res, err := s.resources.GetResource(ctx, lensID)
	if err != nil {
		return nil, err
	}

	return LensFromResource(res)
}

// SetTarget points a lens at a new trace and triggers a run.
func (s *LensService) SetTarget(ctx context.Context, lensID, traceID, userID string) (*Lens, error) {
	lens, err := s.Get(ctx, lensID)
	if err != nil {
		return nil, err
	}

	if _, err := s.resources.GetResource(ctx, traceID); err != nil {
		return nil, fmt.Errorf("loading target trace %s: %w", traceID, err)
	}

	props := lens.Properties
	if props == nil {
		props = map[string]any{}
	}

	props[propTargetTraceID] = traceID

	res, err := s.resources.UpdateResource(ctx, lensID, models.UpdateResourceRequest{Properties: props})
	if err != nil {
		return nil, fmt.Errorf("updating lens target: %w", err)
	}

	lens, err = LensFromResource(res)
	if err != nil {
		return nil, err
	}

	s.trigger(lens, userID)

	return lens, nil
}

// Replay re-runs the analysis for a lens's current target.
func (s *LensService) Replay(ctx context.Context, lensID, userID string) (*Lens, error) {
	lens, err := s.Get(ctx, lensID)
	if err != nil {
		return nil, err
	}

	if lens.TargetTraceID == "" {
		return nil, fmt.Errorf("lens %s has no target trace", lensID)
	}

	s.trigger(lens, userID)

	return lens, nil
}

// lensScanPageSize is the page size for the autoplay lens scan.
const lensScanPageSize = 100

// OnTracePosted retargets every autoplaying lens of the journal at the new
// trace and triggers their runs. The scan pages through all lenses; a lens
// beyond the first page must still be retargeted. Implements the
// TraceService LensTrigger.
func (s *LensService) OnTracePosted(ctx context.Context, journalID, traceID, userID string) {
	for offset := 0; ; offset += lensScanPageSize {
		lenses, hasMore, err := s.resources.ListResourcesByKind(ctx, models.KindLens, lensScanPageSize, offset)
		if err != nil {
			s.log.WithError(err).Warn("listing lenses for autoplay")

			return
		}

		for i := range lenses {
			lens, err := LensFromResource(&lenses[i])
			if err != nil || !lens.Autoplay || lens.JournalID != journalID {
				continue
			}

			if _, err := s.SetTarget(ctx, lens.ID, traceID, userID); err != nil {
				s.log.WithError(err).WithField("lens_id", lens.ID).Warn("autoplay retarget failed")
			}
		}

		if !hasMore {
			return
		}
	}
}

// trigger creates a fresh analysis owned by the lens and schedules a run
// through the single-flight guard. The run uses a detached context so a
// finished HTTP request does not cancel it.
func (s *LensService) trigger(lens *Lens, userID string) {
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer setupCancel()

	analysis, err := s.resources.CreateResource(setupCtx, models.CreateResourceRequest{
		Kind:  models.KindAnalysis,
		Title: "Analysis of " + lens.Title,
	})
	if err != nil {
		s.log.WithError(err).WithField("lens_id", lens.ID).Error("creating analysis for run")

		return
	}

	if _, err := s.relations.CreateRelation(setupCtx, models.CreateRelationRequest{
		OriginID: analysis.ID,
		TargetID: lens.ID,
		Type:     models.RelationOwner,
		UserID:   userID,
	}); err != nil {
		s.log.WithError(err).WithField("lens_id", lens.ID).Error("linking analysis to lens")

		return
	}

	req := pipeline.RunRequest{
		LensID:     lens.ID,
		AnalysisID: analysis.ID,
		TraceID:    lens.TargetTraceID,
		UserID:     userID,
	}

	s.guard.Do(lens.ID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if _, err := s.runner.Run(ctx, req); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"lens_id":     lens.ID,
				"analysis_id": analysis.ID,
			}).Error("pipeline run failed")
		}
	})
}
