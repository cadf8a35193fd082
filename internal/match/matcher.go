// Package match resolves extracted mentions against candidate landmarks.
//
// The component never queries the graph itself: the candidate scope is
// caller-supplied. It also applies no accept threshold; its contract is to
// return the best-ranked candidate and its confidence, leaving the
// match-vs-create decision to the caller.
package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/waymarkhq/waymark/internal/extract"
	"github.com/waymarkhq/waymark/internal/llm"
	"github.com/waymarkhq/waymark/internal/models"
)

// MatchedElement is the resolution result for one mention.
type MatchedElement struct {
	Element     extract.ElementWithIdentifier `json:"element"`
	CandidateID *string                       `json:"candidate_id,omitempty"`
	Confidence  float32                       `json:"confidence"`
	Evidence    string                        `json:"evidence,omitempty"`
}

// Matcher picks the best candidate landmark for a mention, or none.
type Matcher interface {
	Match(ctx context.Context, element extract.ElementWithIdentifier, candidates []models.Landmark) (*MatchedElement, error)
}

// matchBatchParallelism bounds concurrent model calls in a batch.
const matchBatchParallelism = 4

// candidateScore is one entry of the model's per-candidate ranking.
type candidateScore struct {
	Index      int     `json:"index"`
	Confidence float32 `json:"confidence"`
}

type matchResponse struct {
	Scores   []candidateScore `json:"candidate_scores"`
	Evidence string           `json:"evidence"`
}

func matchSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"candidate_scores", "evidence"},
		"properties": map[string]any{
			"candidate_scores": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"index", "confidence"},
					"properties": map[string]any{
						"index":      map[string]any{"type": "integer"},
						"confidence": map[string]any{"type": "number"},
					},
				},
			},
			"evidence": map[string]any{"type": "string"},
		},
	}
}

// LLMMatcher scores candidates with a model call per mention.
type LLMMatcher struct {
	caller llm.Caller
	log    *logrus.Logger
}

// NewLLMMatcher creates an LLMMatcher.
func NewLLMMatcher(caller llm.Caller, log *logrus.Logger) *LLMMatcher {
	return &LLMMatcher{caller: caller, log: log}
}

const matchSystemPrompt = `You are resolving entity mentions against a catalog of known
landmarks. Given one mention and a numbered candidate list, score every candidate with a
confidence in [0,1] that it denotes the same real-world object as the mention. Explain the
deciding signal in the evidence field. Score all candidates; do not omit any.`

// Match scores all candidates and returns the best one. Ties on the exact
// confidence value are broken deterministically: the first-seen candidate in
// the supplied ordering wins. With an empty candidate pool the element is
// new by definition.
func (m *LLMMatcher) Match(
	ctx context.Context,
	element extract.ElementWithIdentifier,
	candidates []models.Landmark,
) (*MatchedElement, error) {
	if len(candidates) == 0 {
		return &MatchedElement{Element: element}, nil
	}

	var resp matchResponse

	err := llm.CompleteAs(ctx, m.caller, llm.CallRequest{
		System:     matchSystemPrompt,
		User:       buildMatchPrompt(element, candidates),
		SchemaName: "candidate_match",
		Schema:     matchSchema(),
	}, &resp)
	if err != nil {
		return nil, err
	}

	confidences := make([]float32, len(candidates))
	for _, s := range resp.Scores {
		if s.Index >= 0 && s.Index < len(candidates) {
			confidences[s.Index] = s.Confidence
		}
	}

	best, bestConfidence := pickBest(confidences)
	if best < 0 {
		return &MatchedElement{Element: element, Evidence: resp.Evidence}, nil
	}

	id := candidates[best].ID

	return &MatchedElement{
		Element:     element,
		CandidateID: &id,
		Confidence:  bestConfidence,
		Evidence:    resp.Evidence,
	}, nil
}

// pickBest returns the index of the maximum confidence, first-seen-wins on
// exact ties via the strictly-greater comparison. Returns -1 when every
// confidence is zero.
func pickBest(confidences []float32) (int, float32) {
	best := -1

	var bestConfidence float32

	for i, c := range confidences {
		if c > bestConfidence {
			best = i
			bestConfidence = c
		}
	}

	return best, bestConfidence
}

func buildMatchPrompt(element extract.ElementWithIdentifier, candidates []models.Landmark) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Mention: %q (type %s)\n", element.OutputIdentifier, element.LandmarkType)

	if element.Evidence != "" {
		fmt.Fprintf(&b, "Context: %q\n", element.Evidence)
	}

	b.WriteString("\nCandidates:\n")

	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s (%s)", i, c.Title, c.LandmarkType)

		if c.Subtitle != "" {
			fmt.Fprintf(&b, ", %s", c.Subtitle)
		}

		b.WriteByte('\n')
	}

	return b.String()
}

// MatchAll resolves a batch of mentions against one candidate pool. Mentions
// are matched independently (bounded parallelism), but all calls share a
// single step id so one resolution pass can be audited as a unit. Results
// preserve input order.
func MatchAll(
	ctx context.Context,
	m Matcher,
	elements []extract.ElementWithIdentifier,
	candidates []models.Landmark,
	log *logrus.Logger,
) ([]MatchedElement, error) {
	stepID := uuid.New().String()

	log.WithFields(logrus.Fields{
		"step_id":    stepID,
		"mentions":   len(elements),
		"candidates": len(candidates),
	}).Info("matching pass started")

	results := make([]MatchedElement, len(elements))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(matchBatchParallelism)

	for i, element := range elements {
		i, element := i, element
		g.Go(func() error {
			matched, err := m.Match(gctx, element, candidates)
			if err != nil {
				return fmt.Errorf("matching %q: %w", element.OutputIdentifier, err)
			}

			log.WithFields(logrus.Fields{
				"step_id":    stepID,
				"mention":    element.OutputIdentifier,
				"matched":    matched.CandidateID != nil,
				"confidence": matched.Confidence,
			}).Debug("mention resolved")

			results[i] = *matched

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
