// Package extract implements schema-constrained model extraction with
// literal-evidence grounding: any span the model claims as evidence must be
// a verbatim substring of the source text.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/waymarkhq/waymark/internal/llm"
	"github.com/waymarkhq/waymark/internal/metrics"
)

// maxGroundingAttempts bounds the validate→correct→retry loop. After this
// many failed attempts the extraction fails; ungrounded evidence is never
// silently accepted.
const maxGroundingAttempts = 3

// GroundingError is returned when grounding validation still fails after
// exhausting all attempts. It carries the offending strings of the last
// attempt.
type GroundingError struct {
	Attempts  int
	Offending []string
}

func (e *GroundingError) Error() string {
	return fmt.Sprintf("grounding validation failed after %d attempts, ungrounded: %q", e.Attempts, e.Offending)
}

// Validator inspects a decoded result and returns every claimed evidence
// string that is NOT verbatim-contained in the source text.
type Validator[T any] func(result T) (offending []string)

// RunGrounded executes the bounded validate→correct→retry loop: call the
// model, validate, and on failure re-invoke with a correction prompt listing
// exactly the invalid strings. The base user prompt is preserved; the
// correction is appended so the model sees the original task plus the list
// of strings it must quote verbatim.
func RunGrounded[T any](
	ctx context.Context,
	caller llm.Caller,
	req llm.CallRequest,
	validate Validator[T],
) (T, error) {
	var (
		zero      T
		offending []string
	)

	baseUser := req.User

	for attempt := 1; attempt <= maxGroundingAttempts; attempt++ {
		if attempt > 1 {
			req.User = baseUser + "\n\n" + correctionPrompt(offending)
			metrics.GroundingRetriesTotal.Inc()
		}

		var result T
		if err := llm.CompleteAs(ctx, caller, req, &result); err != nil {
			return zero, err
		}

		offending = validate(result)
		if len(offending) == 0 {
			return result, nil
		}
	}

	return zero, &GroundingError{Attempts: maxGroundingAttempts, Offending: offending}
}

// correctionPrompt lists exactly the strings that failed verbatim
// containment, so the re-invocation can fix them and nothing else.
func correctionPrompt(offending []string) string {
	var b strings.Builder

	b.WriteString("CORRECTION: the following evidence strings were not found verbatim in the source text. ")
	b.WriteString("Every evidence string must be copied character-for-character from the source. ")
	b.WriteString("Redo the extraction, fixing only these strings:\n")

	for _, s := range offending {
		b.WriteString("- ")
		b.WriteString(fmt.Sprintf("%q", s))
		b.WriteByte('\n')
	}

	return b.String()
}

// grounded reports whether every string in spans is a verbatim substring of
// source, returning the ones that are not.
func grounded(source string, spans []string) []string {
	var offending []string

	for _, s := range spans {
		if s == "" {
			continue
		}

		if !strings.Contains(source, s) {
			offending = append(offending, s)
		}
	}

	return offending
}
