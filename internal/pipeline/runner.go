package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/extract"
	"github.com/waymarkhq/waymark/internal/match"
	"github.com/waymarkhq/waymark/internal/metrics"
	"github.com/waymarkhq/waymark/internal/models"
	"github.com/waymarkhq/waymark/internal/persist"
)

// matchAcceptThreshold is the orchestrator's accept policy: a candidate at
// or above this confidence becomes a Match decision, below it the mention
// creates a new landmark. The matcher itself carries no threshold.
const matchAcceptThreshold = 0.6

// GraphAccess is the store surface the runner needs.
type GraphAccess interface {
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	CreateResource(ctx context.Context, req models.CreateResourceRequest) (*models.Resource, error)
	UpdateResource(ctx context.Context, id string, req models.UpdateResourceRequest) (*models.Resource, error)
}

// CandidateSource retrieves the landmark candidate pool for a run.
type CandidateSource interface {
	LandmarksForAnalysis(ctx context.Context, analysisID string) ([]models.Landmark, error)
	LandmarksForUser(ctx context.Context, userID string) ([]models.Landmark, error)
}

// InteractionRecorder records authorship interactions.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, userID, resourceID, interactionType string, interactionDate time.Time, progress float64) (*models.Interaction, error)
}

// ElementPersister runs the persistence pass.
type ElementPersister interface {
	Persist(ctx context.Context, resolved persist.ResolvedExtraction) persist.PersistedElements
	LinkMirrorToPrimary(ctx context.Context, mirrorID, primaryID, userID string) (*models.Relation, error)
}

// Extractor is the extraction stage surface.
type Extractor interface {
	Qualify(ctx context.Context, analysisID, content string) (*extract.QualifyResult, error)
	ExtractHeaders(ctx context.Context, analysisID, source string) (*extract.HeaderResult, error)
	ExtractOutputs(ctx context.Context, analysisID, source string) (*extract.GrammaticalResult, error)
}

// RunRequest identifies one pipeline run.
type RunRequest struct {
	LensID     string
	AnalysisID string
	TraceID    string
	UserID     string
}

// RunResult summarizes a finished run.
type RunResult struct {
	AnalysisID    string                    `json:"analysis_id"`
	TraceMirrorID string                    `json:"trace_mirror_id"`
	Elements      persist.PersistedElements `json:"elements"`
}

// Runner executes pipeline runs. Stages within one run are strictly
// sequential; independent runs are serialized per lens by the Guard at the
// trigger layer, not here.
type Runner struct {
	graph      GraphAccess
	candidates CandidateSource
	inter      InteractionRecorder
	extractor  Extractor
	matcher    match.Matcher
	persister  ElementPersister
	sink       EventSink
	seq        *EventSequence
	log        *logrus.Logger
}

// NewRunner creates a Runner.
func NewRunner(
	graph GraphAccess,
	candidates CandidateSource,
	inter InteractionRecorder,
	extractor Extractor,
	matcher match.Matcher,
	persister ElementPersister,
	sink EventSink,
	log *logrus.Logger,
) *Runner {
	if sink == nil {
		sink = NopSink{}
	}

	return &Runner{
		graph:      graph,
		candidates: candidates,
		inter:      inter,
		extractor:  extractor,
		matcher:    matcher,
		persister:  persister,
		sink:       sink,
		seq:        NewEventSequence(),
		log:        log,
	}
}

func (r *Runner) emit(req RunRequest, kind EventKind, step Step, detail map[string]any) {
	r.sink.Emit(AnalysisEvent{
		AnalysisID: req.AnalysisID,
		UserID:     req.UserID,
		Seq:        r.seq.Next(req.AnalysisID),
		Timestamp:  time.Now(),
		Kind:       kind,
		Step:       step,
		Detail:     detail,
	})
}

func (r *Runner) emitError(req RunRequest, step Step, err error) {
	r.sink.Emit(AnalysisEvent{
		AnalysisID: req.AnalysisID,
		UserID:     req.UserID,
		Seq:        r.seq.Next(req.AnalysisID),
		Timestamp:  time.Now(),
		Kind:       EventError,
		Step:       step,
		Detail:     map[string]any{"error": err.Error()},
	})
}

// stage wraps one state-machine transition with events and metrics.
func (r *Runner) stage(req RunRequest, step Step, fn func() error) error {
	r.emit(req, EventStepStarted, step, nil)

	start := time.Now()
	err := fn()

	metrics.PipelineStepDuration.WithLabelValues(string(step)).Observe(time.Since(start).Seconds())

	if err != nil {
		r.emitError(req, step, err)

		return fmt.Errorf("step %s: %w", step, err)
	}

	r.emit(req, EventStepFinished, step, nil)

	return nil
}

// Run executes the full state machine for one trace/lens:
// Qualify → HeaderExtract → GrammaticalExtract → Match → Persist → Done.
// A stage error aborts the run; the failing step is reported in the Error
// event and the returned error.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) { //nolint:gocognit // the state machine is one linear sequence.
	log := r.log.WithFields(logrus.Fields{
		"analysis_id": req.AnalysisID,
		"lens_id":     req.LensID,
		"trace_id":    req.TraceID,
	})
	log.Info("pipeline run started")

	result := &RunResult{AnalysisID: req.AnalysisID}

	var (
		trace    *models.Resource
		mirror   *models.Resource
		elements []extract.ElementWithIdentifier
		matched  []match.MatchedElement
	)

	// Qualify: infer the mirror header and create the trace mirror linked
	// to its primary trace.
	err := r.stage(req, StepQualify, func() error {
		var err error

		trace, err = r.graph.GetResource(ctx, req.TraceID)
		if err != nil {
			return err
		}

		r.emit(req, EventLlmCallStarted, StepQualify, map[string]any{"call": "qualify trace"})

		qualified, err := r.extractor.Qualify(ctx, req.AnalysisID, trace.Content)
		if err != nil {
			return err
		}

		r.emit(req, EventLlmCallFinished, StepQualify, map[string]any{"call": "qualify trace"})

		mirror, err = r.graph.CreateResource(ctx, models.CreateResourceRequest{
			Kind:     models.KindTraceMirror,
			Title:    qualified.Title,
			Subtitle: qualified.Subtitle,
			Content:  trace.Content,
			Properties: map[string]any{
				"inferred_date": qualified.Date,
			},
		})
		if err != nil {
			return err
		}

		result.TraceMirrorID = mirror.ID

		if _, err := r.persister.LinkMirrorToPrimary(ctx, mirror.ID, req.TraceID, req.UserID); err != nil {
			return err
		}

		_, err = r.inter.RecordInteraction(ctx, req.UserID, mirror.ID, models.InteractionOutput, time.Now(), 0)

		return err
	})
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()

		return nil, err
	}

	// HeaderExtract: segment the trace into dated headers and persist them
	// on the mirror, where timeline views and references read them back.
	err = r.stage(req, StepHeaderExtract, func() error {
		r.emit(req, EventLlmCallStarted, StepHeaderExtract, map[string]any{"call": "extract headers"})

		headers, err := r.extractor.ExtractHeaders(ctx, req.AnalysisID, trace.Content)
		if err != nil {
			return err
		}

		r.emit(req, EventLlmCallFinished, StepHeaderExtract, map[string]any{
			"call":    "extract headers",
			"headers": len(headers.Headers),
		})

		spans := make([]map[string]any, 0, len(headers.Headers))
		for _, h := range headers.Headers {
			spans = append(spans, map[string]any{"heading": h.Heading, "date": h.Date})
		}

		props := mirror.Properties
		if props == nil {
			props = map[string]any{}
		}

		props["headers"] = spans

		mirror, err = r.graph.UpdateResource(ctx, mirror.ID, models.UpdateResourceRequest{Properties: props})

		return err
	})
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()

		return nil, err
	}

	err = r.stage(req, StepGrammaticalExtract, func() error {
		r.emit(req, EventLlmCallStarted, StepGrammaticalExtract, map[string]any{"call": "extract output events"})

		outputs, err := r.extractor.ExtractOutputs(ctx, req.AnalysisID, trace.Content)
		if err != nil {
			return err
		}

		r.emit(req, EventLlmCallFinished, StepGrammaticalExtract, map[string]any{
			"call":   "extract output events",
			"events": len(outputs.Events),
		})

		elements = make([]extract.ElementWithIdentifier, 0, len(outputs.Events))
		for _, ev := range outputs.Events {
			elements = append(elements, ev.Target)
		}

		return nil
	})
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()

		return nil, err
	}

	err = r.stage(req, StepMatch, func() error {
		pool, err := r.candidates.LandmarksForAnalysis(ctx, req.AnalysisID)
		if err != nil {
			return err
		}

		userPool, err := r.candidates.LandmarksForUser(ctx, req.UserID)
		if err != nil {
			return err
		}

		pool = mergeCandidatePools(pool, userPool)

		r.emit(req, EventCandidatesRetrieved, StepMatch, map[string]any{"candidates": len(pool)})

		matched, err = match.MatchAll(ctx, r.matcher, elements, pool, r.log)

		return err
	})
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()

		return nil, err
	}

	err = r.stage(req, StepPersist, func() error {
		resolved := persist.ResolvedExtraction{
			AnalysisID:    req.AnalysisID,
			TraceMirrorID: result.TraceMirrorID,
			UserID:        req.UserID,
			Elements:      make([]persist.ResolvedElement, 0, len(matched)),
		}

		for _, m := range matched {
			decision := decide(m)

			r.emit(req, EventDecisionMade, StepPersist, map[string]any{
				"mention":    m.Element.OutputIdentifier,
				"decision":   string(decision),
				"confidence": m.Confidence,
			})

			resolved.Elements = append(resolved.Elements, persist.ResolvedElement{Matched: m, Decision: decision})
		}

		result.Elements = r.persister.Persist(ctx, resolved)

		if n := len(result.Elements.Failed); n > 0 {
			log.WithField("failed", n).Warn("persistence pass had element failures")
		}

		return nil
	})
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()

		return nil, err
	}

	r.emit(req, EventStepFinished, StepDone, map[string]any{
		"persisted": len(result.Elements.Succeeded),
		"failed":    len(result.Elements.Failed),
	})
	metrics.PipelineRunsTotal.WithLabelValues("ok").Inc()
	log.Info("pipeline run finished")

	return result, nil
}

// decide applies the accept policy: a qualifying candidate is a Match, an
// identified mention without one creates a landmark, and a mention with no
// usable identifier is skipped (a resolution miss, not a fatal error).
func decide(m match.MatchedElement) persist.Decision {
	if m.Element.OutputIdentifier == "" {
		return persist.DecisionSkip
	}

	if m.CandidateID != nil && m.Confidence >= matchAcceptThreshold {
		return persist.DecisionMatch
	}

	return persist.DecisionCreate
}

// mergeCandidatePools appends the user-level pool after the analysis pool,
// dropping duplicates. Analysis-scoped candidates keep their earlier
// position, which matters for the first-seen tie-break.
func mergeCandidatePools(analysisPool, userPool []models.Landmark) []models.Landmark {
	seen := make(map[string]bool, len(analysisPool))
	for _, l := range analysisPool {
		seen[l.ID] = true
	}

	merged := analysisPool

	for _, l := range userPool {
		if !seen[l.ID] {
			merged = append(merged, l)
			seen[l.ID] = true
		}
	}

	return merged
}
