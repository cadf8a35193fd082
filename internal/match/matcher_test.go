package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/extract"
	"github.com/waymarkhq/waymark/internal/llm"
	"github.com/waymarkhq/waymark/internal/models"
)

type fakeCaller struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (f *fakeCaller) Complete(_ context.Context, _ llm.CallRequest) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	return json.RawMessage(f.response), nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func testCandidates(ids ...string) []models.Landmark {
	out := make([]models.Landmark, len(ids))
	for i, id := range ids {
		out[i] = models.Landmark{
			Resource:     models.Resource{ID: id, Title: "candidate " + id},
			LandmarkType: models.LandmarkPerson,
		}
	}

	return out
}

func testElement(identifier string) extract.ElementWithIdentifier {
	return extract.ElementWithIdentifier{
		OutputIdentifier: identifier,
		LandmarkType:     models.LandmarkPerson,
		Evidence:         "met " + identifier,
	}
}

func TestMatch_EmptyPoolSkipsModel(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{response: `{}`}
	m := NewLLMMatcher(caller, testLogger())

	got, err := m.Match(context.Background(), testElement("Alice"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CandidateID != nil {
		t.Errorf("expected no candidate, got %v", *got.CandidateID)
	}

	if got.Element.OutputIdentifier != "Alice" {
		t.Errorf("element not carried through: %+v", got.Element)
	}

	if caller.calls != 0 {
		t.Errorf("empty pool must not call the model, got %d calls", caller.calls)
	}
}

func TestMatch_PicksHighestScore(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{response: `{
		"candidate_scores": [
			{"index": 0, "confidence": 0.3},
			{"index": 1, "confidence": 0.9},
			{"index": 2, "confidence": 0.5}
		],
		"evidence": "surname matches"
	}`}
	m := NewLLMMatcher(caller, testLogger())

	got, err := m.Match(context.Background(), testElement("Alice"), testCandidates("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CandidateID == nil || *got.CandidateID != "b" {
		t.Fatalf("expected candidate b, got %+v", got)
	}

	if got.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", got.Confidence)
	}

	if got.Evidence != "surname matches" {
		t.Errorf("evidence not carried through: %q", got.Evidence)
	}
}

func TestMatch_AllZeroScoresMeansNoMatch(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{response: `{
		"candidate_scores": [{"index": 0, "confidence": 0}, {"index": 1, "confidence": 0}],
		"evidence": "no overlap"
	}`}
	m := NewLLMMatcher(caller, testLogger())

	got, err := m.Match(context.Background(), testElement("Alice"), testCandidates("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CandidateID != nil {
		t.Errorf("expected no candidate, got %v", *got.CandidateID)
	}

	if got.Evidence != "no overlap" {
		t.Errorf("evidence not carried through: %q", got.Evidence)
	}
}

func TestMatch_IgnoresOutOfRangeIndices(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{response: `{
		"candidate_scores": [
			{"index": -1, "confidence": 0.99},
			{"index": 5, "confidence": 0.99},
			{"index": 0, "confidence": 0.4}
		],
		"evidence": ""
	}`}
	m := NewLLMMatcher(caller, testLogger())

	got, err := m.Match(context.Background(), testElement("Alice"), testCandidates("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CandidateID == nil || *got.CandidateID != "a" {
		t.Fatalf("expected candidate a, got %+v", got)
	}
}

func TestPickBest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		confidences []float32
		wantIdx     int
		wantConf    float32
	}{
		{"empty", nil, -1, 0},
		{"all zero", []float32{0, 0, 0}, -1, 0},
		{"single", []float32{0.5}, 0, 0.5},
		{"first seen wins tie", []float32{0.7, 0.7, 0.2}, 0, 0.7},
		{"later strictly greater wins", []float32{0.7, 0.8}, 1, 0.8},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			idx, conf := pickBest(tt.confidences)
			if idx != tt.wantIdx || conf != tt.wantConf {
				t.Errorf("pickBest(%v) = (%d, %v), want (%d, %v)",
					tt.confidences, idx, conf, tt.wantIdx, tt.wantConf)
			}
		})
	}
}

// orderMatcher echoes the mention back as the candidate id so order is
// observable.
type orderMatcher struct{}

func (orderMatcher) Match(_ context.Context, element extract.ElementWithIdentifier, _ []models.Landmark) (*MatchedElement, error) {
	id := "resolved-" + element.OutputIdentifier

	return &MatchedElement{Element: element, CandidateID: &id, Confidence: 1}, nil
}

func TestMatchAll_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	elements := make([]extract.ElementWithIdentifier, 10)
	for i := range elements {
		elements[i] = testElement(fmt.Sprintf("m%d", i))
	}

	results, err := MatchAll(context.Background(), orderMatcher{}, elements, nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != len(elements) {
		t.Fatalf("expected %d results, got %d", len(elements), len(results))
	}

	for i, r := range results {
		want := fmt.Sprintf("resolved-m%d", i)
		if r.CandidateID == nil || *r.CandidateID != want {
			t.Errorf("result %d out of order: %+v", i, r)
		}
	}
}

type failingMatcher struct{}

func (failingMatcher) Match(context.Context, extract.ElementWithIdentifier, []models.Landmark) (*MatchedElement, error) {
	return nil, errors.New("model down")
}

func TestMatchAll_PropagatesErrors(t *testing.T) {
	t.Parallel()

	_, err := MatchAll(context.Background(), failingMatcher{},
		[]extract.ElementWithIdentifier{testElement("Alice")}, nil, testLogger())
	if err == nil {
		t.Fatal("expected error")
	}
}
