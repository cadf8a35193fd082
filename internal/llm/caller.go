// Package llm wraps the external language model behind a narrow call
// interface: prompt plus JSON schema in, typed JSON out, or a typed failure.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// CallMetadata tags a model call for observability.
type CallMetadata struct {
	AnalysisID  string
	DisplayName string
}

// CallRequest describes one schema-constrained model call. The schema is
// strict: required fields and field shapes are enforced by the provider's
// constrained decoding, not re-validated locally.
type CallRequest struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
	Metadata   CallMetadata
}

// Caller is the model call interface consumed by the pipeline.
type Caller interface {
	Complete(ctx context.Context, req CallRequest) (json.RawMessage, error)
}

// ModelError is returned when the provider call fails or returns
// non-conforming output.
type ModelError struct {
	Status int
	Msg    string
}

func (e *ModelError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("model call failed (status %d): %s", e.Status, e.Msg)
	}

	return "model call failed: " + e.Msg
}

// ErrCircuitOpen is returned when the circuit breaker is rejecting calls
// without contacting the provider.
var ErrCircuitOpen = errors.New("model circuit breaker is open")

// CompleteAs calls the model and decodes the result into out.
func CompleteAs(ctx context.Context, c Caller, req CallRequest, out any) error {
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ModelError{Msg: fmt.Sprintf("non-conforming output for schema %s: %v", req.SchemaName, err)}
	}

	return nil
}
