package models

import "time"

// ReferenceType classifies how a mention relates to its landmark.
type ReferenceType string

// Reference types.
const (
	ReferenceDirect   ReferenceType = "direct"
	ReferencePronoun  ReferenceType = "pronoun"
	ReferenceImplicit ReferenceType = "implicit"
)

// Reference records a single grounded mention of a landmark inside a trace
// mirror's content. Mention is guaranteed to be a verbatim substring of the
// mirror content it was extracted from; the grounding loop enforces this
// before persistence ever sees the row.
type Reference struct {
	TagID             string         `json:"tag_id"`
	TraceMirrorID     string         `json:"trace_mirror_id"`
	LandmarkID        *string        `json:"landmark_id,omitempty"`
	Mention           string         `json:"mention"`
	ReferenceType     ReferenceType  `json:"reference_type"`
	ContextTags       []string       `json:"context_tags,omitempty"`
	ReferenceVariants map[string]any `json:"reference_variants,omitempty"`
	ParentReferenceID *string        `json:"parent_reference_id,omitempty"`
	SameObjectTagID   *string        `json:"same_object_tag_id,omitempty"`
	IsUserSpecific    bool           `json:"is_user_specific"`
	CreatedAt         time.Time      `json:"created_at"`
}

// CreateReferenceRequest is the payload for creating a reference row.
type CreateReferenceRequest struct {
	TagID             string         `json:"tag_id"`
	TraceMirrorID     string         `json:"trace_mirror_id"`
	LandmarkID        *string        `json:"landmark_id,omitempty"`
	Mention           string         `json:"mention"`
	ReferenceType     ReferenceType  `json:"reference_type"`
	ContextTags       []string       `json:"context_tags,omitempty"`
	ReferenceVariants map[string]any `json:"reference_variants,omitempty"`
	ParentReferenceID *string        `json:"parent_reference_id,omitempty"`
	SameObjectTagID   *string        `json:"same_object_tag_id,omitempty"`
	IsUserSpecific    bool           `json:"is_user_specific"`
}

// Validate checks required fields on CreateReferenceRequest.
func (r *CreateReferenceRequest) Validate() error {
	if r.TraceMirrorID == "" {
		return ErrMissingMirror
	}

	if r.Mention == "" {
		return ErrMissingMention
	}

	if len(r.Mention) > 10000 {
		return ErrFieldTooLong("mention", 10000)
	}

	if r.ReferenceType == "" {
		r.ReferenceType = ReferenceDirect
	}

	return nil
}
