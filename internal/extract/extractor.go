package extract

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/llm"
)

// Extractor runs the model-backed extraction stages over trace text.
type Extractor struct {
	caller llm.Caller
	log    *logrus.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(caller llm.Caller, log *logrus.Logger) *Extractor {
	return &Extractor{caller: caller, log: log}
}

const qualifySystemPrompt = `You are a journal analyst. Given a raw work journal entry,
infer a short title, an optional subtitle, and the entry date if the text names one.
Return the date as YYYY-MM-DD or an empty string.`

// Qualify infers title, subtitle and date for a freshly posted trace.
// Qualification claims no evidence spans, so no grounding loop is needed.
func (e *Extractor) Qualify(ctx context.Context, analysisID, content string) (*QualifyResult, error) {
	var result QualifyResult

	err := llm.CompleteAs(ctx, e.caller, llm.CallRequest{
		System:     qualifySystemPrompt,
		User:       content,
		SchemaName: "trace_qualification",
		Schema:     qualifySchema(),
		Metadata:   llm.CallMetadata{AnalysisID: analysisID, DisplayName: "qualify trace"},
	}, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

const headerSystemPrompt = `You are a journal analyst. Find every section heading in the
source text. Quote each heading EXACTLY as it appears, character for character. If a
heading names a date, return it as YYYY-MM-DD, otherwise an empty string.`

// ExtractHeaders finds section headings in the source, each quoted verbatim.
func (e *Extractor) ExtractHeaders(ctx context.Context, analysisID, source string) (*HeaderResult, error) {
	result, err := RunGrounded(ctx, e.caller, llm.CallRequest{
		System:     headerSystemPrompt,
		User:       source,
		SchemaName: "header_extraction",
		Schema:     headerSchema(),
		Metadata:   llm.CallMetadata{AnalysisID: analysisID, DisplayName: "extract headers"},
	}, func(r HeaderResult) []string {
		spans := make([]string, 0, len(r.Headers))
		for _, h := range r.Headers {
			spans = append(spans, h.Heading)
		}

		return grounded(source, spans)
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"analysis_id": analysisID,
		"headers":     len(result.Headers),
	}).Debug("header extraction finished")

	return &result, nil
}

const grammaticalSystemPrompt = `You are a journal analyst. Extract every output event from
the source text: an action the author reports performing, and the element it targets.
The target's output_identifier and evidence must be EXACT verbatim substrings of the
source text. Classify each target as resource, person, project or high_level_project.`

// ExtractOutputs extracts output events with grounded target identifiers.
func (e *Extractor) ExtractOutputs(ctx context.Context, analysisID, source string) (*GrammaticalResult, error) {
	result, err := RunGrounded(ctx, e.caller, llm.CallRequest{
		System:     grammaticalSystemPrompt,
		User:       source,
		SchemaName: "grammatical_extraction",
		Schema:     grammaticalSchema(),
		Metadata:   llm.CallMetadata{AnalysisID: analysisID, DisplayName: "extract output events"},
	}, func(r GrammaticalResult) []string {
		spans := make([]string, 0, len(r.Events)*2)
		for _, ev := range r.Events {
			spans = append(spans, ev.Target.OutputIdentifier, ev.Target.Evidence)
		}

		return grounded(source, spans)
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"analysis_id": analysisID,
		"events":      len(result.Events),
	}).Debug("grammatical extraction finished")

	return &result, nil
}
