package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func extractorLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func TestQualify(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{responses: []string{
		`{"title":"Standup notes","subtitle":"launch prep","date":"2026-08-31"}`,
	}}
	e := NewExtractor(caller, extractorLogger())

	got, err := e.Qualify(context.Background(), "analysis-1", "today we prepped the launch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Title != "Standup notes" || got.Date != "2026-08-31" {
		t.Errorf("unexpected result: %+v", got)
	}

	if caller.requests[0].SchemaName != "trace_qualification" {
		t.Errorf("unexpected schema %q", caller.requests[0].SchemaName)
	}
}

func TestExtractHeaders_GroundsHeadings(t *testing.T) {
	t.Parallel()

	source := "# Monday standup\nshipped the report\n# Tuesday retro\nplanning\n"

	caller := &fakeCaller{responses: []string{
		// First response invents a heading; the retry quotes verbatim.
		`{"headers":[{"heading":"# Monday sync","date":""}]}`,
		`{"headers":[{"heading":"# Monday standup","date":""},{"heading":"# Tuesday retro","date":""}]}`,
	}}
	e := NewExtractor(caller, extractorLogger())

	got, err := e.ExtractHeaders(context.Background(), "analysis-1", source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Headers) != 2 {
		t.Fatalf("expected 2 headers, got %+v", got.Headers)
	}

	if len(caller.requests) != 2 {
		t.Errorf("expected a grounding retry, got %d calls", len(caller.requests))
	}
}

func TestExtractOutputs_GroundsIdentifierAndEvidence(t *testing.T) {
	t.Parallel()

	source := "emailed Alice about the Mercury report"

	caller := &fakeCaller{responses: []string{
		`{"events":[{"action":"emailed","target":{"output_identifier":"Alice","landmark_type":"person","evidence":"emailed Alice"}}]}`,
	}}
	e := NewExtractor(caller, extractorLogger())

	got, err := e.ExtractOutputs(context.Background(), "analysis-1", source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Events) != 1 || got.Events[0].Target.OutputIdentifier != "Alice" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestExtractOutputs_UngroundedEvidenceFails(t *testing.T) {
	t.Parallel()

	source := "emailed Alice about the Mercury report"

	caller := &fakeCaller{responses: []string{
		`{"events":[{"action":"emailed","target":{"output_identifier":"Alice","landmark_type":"person","evidence":"wrote to Alicia"}}]}`,
	}}
	e := NewExtractor(caller, extractorLogger())

	_, err := e.ExtractOutputs(context.Background(), "analysis-1", source)

	var gerr *GroundingError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GroundingError, got %v", err)
	}
}
