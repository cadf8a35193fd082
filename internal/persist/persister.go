// Package persist turns resolved extractions into graph writes.
//
// Writes are ordered so that referenced nodes always exist before edges
// pointing at them, and any write that fails mid-sequence is surfaced,
// never hidden. Batch persistence isolates failures per element.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/match"
	"github.com/waymarkhq/waymark/internal/models"
)

// ResourceWriter is the resource store surface the persister depends on.
type ResourceWriter interface {
	CreateResource(ctx context.Context, req models.CreateResourceRequest) (*models.Resource, error)
}

// RelationWriter is the relation store surface the persister depends on.
type RelationWriter interface {
	CreateRelation(ctx context.Context, req models.CreateRelationRequest) (*models.Relation, error)
	LinkIfAbsent(ctx context.Context, req models.CreateRelationRequest) (*models.Relation, error)
}

// InteractionWriter records authorship interactions.
type InteractionWriter interface {
	RecordInteraction(ctx context.Context, userID, resourceID, interactionType string, interactionDate time.Time, progress float64) (*models.Interaction, error)
}

// ReferenceWriter persists grounded mention rows.
type ReferenceWriter interface {
	CreateReference(ctx context.Context, req models.CreateReferenceRequest) (*models.Reference, error)
}

// ResolvedElement is one matched mention ready for persistence, together
// with the decision the caller made about it.
type ResolvedElement struct {
	Matched  match.MatchedElement
	Decision Decision
}

// Decision is the caller's verdict for a resolved mention.
type Decision string

// Decisions.
const (
	DecisionCreate Decision = "create" // create a new landmark
	DecisionMatch  Decision = "match"  // link to the existing candidate
	DecisionSkip   Decision = "skip"   // no candidate, nothing creatable
)

// ResolvedExtraction is the full input to one persistence pass.
type ResolvedExtraction struct {
	AnalysisID    string
	TraceMirrorID string
	UserID        string
	Elements      []ResolvedElement
}

// PersistedElement records the graph ids produced for one element.
type PersistedElement struct {
	Index       int    `json:"index"`
	LandmarkID  string `json:"landmark_id,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	Created     bool   `json:"created"`
	Skipped     bool   `json:"skipped"`
}

// ElementFailure records why one element could not be persisted.
type ElementFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// PersistedElements is the structured partial-failure result of a batch
// persistence pass.
type PersistedElements struct {
	Succeeded []PersistedElement `json:"succeeded"`
	Failed    []ElementFailure   `json:"failed"`
}

// Persister owns the write sequences that turn resolved extractions into
// graph state.
type Persister struct {
	resources    ResourceWriter
	relations    RelationWriter
	interactions InteractionWriter
	references   ReferenceWriter
	log          *logrus.Logger
}

// NewPersister creates a Persister.
func NewPersister(
	resources ResourceWriter,
	relations RelationWriter,
	interactions InteractionWriter,
	references ReferenceWriter,
	log *logrus.Logger,
) *Persister {
	return &Persister{
		resources:    resources,
		relations:    relations,
		interactions: interactions,
		references:   references,
		log:          log,
	}
}

// Persist writes all elements of a resolved extraction. One element's
// failure never aborts the others; the result lists which indices succeeded
// with their new ids and which failed with the error message.
func (p *Persister) Persist(ctx context.Context, resolved ResolvedExtraction) PersistedElements {
	result := PersistedElements{
		Succeeded: make([]PersistedElement, 0, len(resolved.Elements)),
	}

	for i, el := range resolved.Elements {
		persisted, err := p.persistElement(ctx, resolved, i, el)
		if err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{
				"analysis_id": resolved.AnalysisID,
				"index":       i,
				"mention":     el.Matched.Element.OutputIdentifier,
			}).Warn("element persistence failed")

			result.Failed = append(result.Failed, ElementFailure{Index: i, Reason: err.Error()})

			continue
		}

		result.Succeeded = append(result.Succeeded, *persisted)
	}

	return result
}

// persistElement runs the ordered write sequence for one element.
//
// Create decision: landmark node, then ownership edge to the analysis, then
// membership edge to the trace mirror, then authorship interaction, then the
// reference row. Match decision: membership edge and reference row only,
// pointing at the existing landmark id.
func (p *Persister) persistElement(
	ctx context.Context,
	resolved ResolvedExtraction,
	index int,
	el ResolvedElement,
) (*PersistedElement, error) {
	switch el.Decision {
	case DecisionSkip:
		return &PersistedElement{Index: index, Skipped: true}, nil

	case DecisionCreate:
		return p.createAndLink(ctx, resolved, index, el)

	case DecisionMatch:
		if el.Matched.CandidateID == nil {
			return nil, fmt.Errorf("element %d: match decision without candidate id", index)
		}

		return p.linkExisting(ctx, resolved, index, el, *el.Matched.CandidateID)

	default:
		return nil, fmt.Errorf("element %d: unknown decision %q", index, el.Decision)
	}
}

func (p *Persister) createAndLink(
	ctx context.Context,
	resolved ResolvedExtraction,
	index int,
	el ResolvedElement,
) (*PersistedElement, error) {
	element := el.Matched.Element

	landmark, err := p.resources.CreateResource(ctx, models.CreateResourceRequest{
		Kind:       models.KindLandmark,
		Title:      element.OutputIdentifier,
		Properties: models.LandmarkProperties(element.LandmarkType, models.IdentityTentative, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("creating landmark: %w", err)
	}

	if _, err := p.relations.CreateRelation(ctx, models.CreateRelationRequest{
		OriginID: landmark.ID,
		TargetID: resolved.AnalysisID,
		Type:     models.RelationOwner,
		UserID:   resolved.UserID,
	}); err != nil {
		return nil, fmt.Errorf("creating ownership relation: %w", err)
	}

	if _, err := p.interactions.RecordInteraction(ctx,
		resolved.UserID, landmark.ID, models.InteractionOutput, time.Now(), 0); err != nil {
		return nil, fmt.Errorf("recording landmark authorship: %w", err)
	}

	return p.linkAndReference(ctx, resolved, index, el, landmark.ID, true)
}

func (p *Persister) linkExisting(
	ctx context.Context,
	resolved ResolvedExtraction,
	index int,
	el ResolvedElement,
	landmarkID string,
) (*PersistedElement, error) {
	return p.linkAndReference(ctx, resolved, index, el, landmarkID, false)
}

// linkAndReference creates the membership edge from landmark to mirror and
// the reference row for the grounded mention. The membership edge carries
// the mention in its comment payload, so repeated mentions of the same
// landmark in one mirror become distinct edges under the natural key.
func (p *Persister) linkAndReference(
	ctx context.Context,
	resolved ResolvedExtraction,
	index int,
	el ResolvedElement,
	landmarkID string,
	created bool,
) (*PersistedElement, error) {
	element := el.Matched.Element

	if _, err := p.relations.LinkIfAbsent(ctx, models.CreateRelationRequest{
		OriginID: landmarkID,
		TargetID: resolved.TraceMirrorID,
		Type:     models.RelationElement,
		Comment:  map[string]any{"mention": element.OutputIdentifier},
		UserID:   resolved.UserID,
	}); err != nil {
		return nil, fmt.Errorf("creating element relation: %w", err)
	}

	ref, err := p.references.CreateReference(ctx, models.CreateReferenceRequest{
		TraceMirrorID: resolved.TraceMirrorID,
		LandmarkID:    &landmarkID,
		Mention:       element.OutputIdentifier,
		ReferenceType: models.ReferenceDirect,
		ReferenceVariants: map[string]any{
			"evidence":   element.Evidence,
			"confidence": el.Matched.Confidence,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating reference: %w", err)
	}

	return &PersistedElement{
		Index:       index,
		LandmarkID:  landmarkID,
		ReferenceID: ref.TagID,
		Created:     created,
	}, nil
}

// LinkMirrorToPrimary links a trace mirror to the primary resource it
// annotates. The link is upsert-by-natural-key: calling it twice with
// identical arguments yields exactly one edge.
func (p *Persister) LinkMirrorToPrimary(ctx context.Context, mirrorID, primaryID, userID string) (*models.Relation, error) {
	rel, err := p.relations.LinkIfAbsent(ctx, models.CreateRelationRequest{
		OriginID: mirrorID,
		TargetID: primaryID,
		Type:     models.RelationPrimary,
		UserID:   userID,
	})
	if err != nil {
		return nil, fmt.Errorf("linking mirror to primary: %w", err)
	}

	return rel, nil
}
