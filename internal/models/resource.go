// Package models defines data types for the waymark resource graph.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResourceKind enumerates the typed views a resource can hydrate into.
type ResourceKind string

// Resource kinds.
const (
	KindTrace       ResourceKind = "trace"
	KindTraceMirror ResourceKind = "trace_mirror"
	KindJournal     ResourceKind = "journal"
	KindLandmark    ResourceKind = "landmark"
	KindAnalysis    ResourceKind = "analysis"
	KindLens        ResourceKind = "lens"
)

// validKinds is the closed set accepted at the store boundary.
var validKinds = map[ResourceKind]bool{
	KindTrace:       true,
	KindTraceMirror: true,
	KindJournal:     true,
	KindLandmark:    true,
	KindAnalysis:    true,
	KindLens:        true,
}

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool { return validKinds[k] }

// MaturingState tracks editorial maturity of a resource.
type MaturingState string

// Maturing states.
const (
	MaturingDraft    MaturingState = "draft"
	MaturingReview   MaturingState = "review"
	MaturingFinished MaturingState = "finished"
)

// PublishingState tracks visibility of a resource.
type PublishingState string

// Publishing states.
const (
	PublishingPrivate   PublishingState = "private"
	PublishingPublished PublishingState = "published"
)

// Resource is a vertex in the resource graph. Kind-specific fields live in
// Properties and are projected out by the typed views (Landmark, Lens).
type Resource struct {
	ID              string          `json:"id"`
	Kind            ResourceKind    `json:"kind"`
	Title           string          `json:"title"`
	Subtitle        string          `json:"subtitle,omitempty"`
	Content         string          `json:"content,omitempty"`
	Properties      map[string]any  `json:"properties"`
	MaturingState   MaturingState   `json:"maturing_state"`
	PublishingState PublishingState `json:"publishing_state"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreateResourceRequest is the payload for creating a new resource.
type CreateResourceRequest struct {
	ID              string          `json:"id"`
	Kind            ResourceKind    `json:"kind"`
	Title           string          `json:"title"`
	Subtitle        string          `json:"subtitle,omitempty"`
	Content         string          `json:"content,omitempty"`
	Properties      map[string]any  `json:"properties,omitempty"`
	MaturingState   MaturingState   `json:"maturing_state,omitempty"`
	PublishingState PublishingState `json:"publishing_state,omitempty"`
}

// Validate checks required fields and limits on CreateResourceRequest.
// If ID is empty, a UUID is auto-generated. Empty states default to
// draft/private.
func (r *CreateResourceRequest) Validate() error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	if len(r.ID) > 255 {
		return ErrFieldTooLong("id", 255)
	}

	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}

	if r.Title == "" {
		return ErrMissingTitle
	}

	if len(r.Title) > 1000 {
		return ErrFieldTooLong("title", 1000)
	}

	if len(r.Content) > 1<<20 {
		return ErrFieldTooLong("content", 1<<20)
	}

	if r.MaturingState == "" {
		r.MaturingState = MaturingDraft
	}

	if r.PublishingState == "" {
		r.PublishingState = PublishingPrivate
	}

	if r.Properties != nil {
		data, err := json.Marshal(r.Properties)
		if err != nil {
			return fmt.Errorf("invalid properties: %w", err)
		}
		if len(data) > 65536 {
			return ErrFieldTooLong("properties", 65536)
		}
	}

	return nil
}

// UpdateResourceRequest is a partial update. ID and Kind are immutable and
// deliberately absent.
type UpdateResourceRequest struct {
	Title           *string          `json:"title,omitempty"`
	Subtitle        *string          `json:"subtitle,omitempty"`
	Content         *string          `json:"content,omitempty"`
	Properties      map[string]any   `json:"properties,omitempty"`
	MaturingState   *MaturingState   `json:"maturing_state,omitempty"`
	PublishingState *PublishingState `json:"publishing_state,omitempty"`
}

// Validate checks UpdateResourceRequest fields.
func (r *UpdateResourceRequest) Validate() error {
	if r.Title != nil && *r.Title == "" {
		return ErrMissingTitle
	}

	if r.Title != nil && len(*r.Title) > 1000 {
		return ErrFieldTooLong("title", 1000)
	}

	if r.Content != nil && len(*r.Content) > 1<<20 {
		return ErrFieldTooLong("content", 1<<20)
	}

	if r.Properties != nil {
		data, err := json.Marshal(r.Properties)
		if err != nil {
			return fmt.Errorf("invalid properties: %w", err)
		}
		if len(data) > 65536 {
			return ErrFieldTooLong("properties", 65536)
		}
	}

	return nil
}
