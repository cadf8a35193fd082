// Package pipeline sequences the extraction, matching and persistence
// stages per trace/lens and emits an ordered observability event stream.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// Step names the pipeline stages.
type Step string

// Pipeline steps.
const (
	StepQualify            Step = "qualify"
	StepHeaderExtract      Step = "header_extract"
	StepGrammaticalExtract Step = "grammatical_extract"
	StepMatch              Step = "match"
	StepPersist            Step = "persist"
	StepDone               Step = "done"
)

// EventKind classifies an observability event.
type EventKind string

// Event kinds.
const (
	EventStepStarted         EventKind = "step_started"
	EventStepFinished        EventKind = "step_finished"
	EventLlmCallStarted      EventKind = "llm_call_started"
	EventLlmCallFinished     EventKind = "llm_call_finished"
	EventCandidatesRetrieved EventKind = "candidates_retrieved"
	EventDecisionMade        EventKind = "decision_made"
	EventError               EventKind = "error"
)

// AnalysisEvent is one record of the observability stream. Seq increases
// monotonically per analysis, so a consumer can replay progress in order
// even under concurrent steps.
type AnalysisEvent struct {
	AnalysisID     string         `json:"analysis_id"`
	UserID         string         `json:"-"`
	Seq            uint64         `json:"seq"`
	Timestamp      time.Time      `json:"timestamp"`
	Kind           EventKind      `json:"event"`
	Step           Step           `json:"step,omitempty"`
	Detail         map[string]any `json:"detail,omitempty"`
	RetryInSeconds *int           `json:"retry_in_seconds,omitempty"`
}

// EventSink consumes analysis events. Implementations must not block.
type EventSink interface {
	Emit(evt AnalysisEvent)
}

// NopSink discards events.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(AnalysisEvent) {}

// EventSequence tracks monotonic event sequence numbers per analysis.
type EventSequence struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{counters: make(map[string]*atomic.Uint64)}
}

// Next returns the next sequence number for an analysis.
func (es *EventSequence) Next(analysisID string) uint64 {
	es.mu.Lock()
	counter, ok := es.counters[analysisID]
	if !ok {
		counter = &atomic.Uint64{}
		es.counters[analysisID] = counter
	}
	es.mu.Unlock()

	return counter.Add(1)
}
