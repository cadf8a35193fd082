package extract

import "github.com/waymarkhq/waymark/internal/models"

// QualifyResult is the inferred header of a freshly posted trace.
type QualifyResult struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	// Date is the inferred entry date in YYYY-MM-DD form, or "" when the
	// text carries no date signal.
	Date string `json:"date"`
}

// HeaderSpan is one section heading found in a trace, quoted verbatim.
type HeaderSpan struct {
	Heading string `json:"heading"`
	Date    string `json:"date"`
}

// HeaderResult is the output of the header extraction stage.
type HeaderResult struct {
	Headers []HeaderSpan `json:"headers"`
}

// ElementWithIdentifier is an extracted mention before resolution: the
// identifier the trace uses for some real-world object, plus the evidence
// span it was read from. Both are verbatim substrings of the source.
type ElementWithIdentifier struct {
	OutputIdentifier string              `json:"output_identifier"`
	LandmarkType     models.LandmarkType `json:"landmark_type"`
	Evidence         string              `json:"evidence"`
}

// OutputEvent is one action the trace author reports performing on a target
// element ("emailed Alice about the Mercury report").
type OutputEvent struct {
	Action string                `json:"action"`
	Target ElementWithIdentifier `json:"target"`
}

// GrammaticalResult is the output of the grammatical extraction stage.
type GrammaticalResult struct {
	Events []OutputEvent `json:"events"`
}
