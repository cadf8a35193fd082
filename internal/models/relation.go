package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RelationType is the short code classifying a relation. The set is closed;
// codes are never reused with conflicting semantics.
type RelationType string

// Relation type codes.
//
//	ownr: target owns origin; deletion of the owner cascades to owned resources
//	elmt: origin is an element extracted from the target trace mirror
//	jrit: origin is a journal item (trace) belonging to the target journal
//	rfrc: origin is referenced by the target landmark
//	prim: origin mirror annotates the target primary resource
const (
	RelationOwner       RelationType = "ownr"
	RelationElement     RelationType = "elmt"
	RelationJournalItem RelationType = "jrit"
	RelationReference   RelationType = "rfrc"
	RelationPrimary     RelationType = "prim"
)

var validRelationTypes = map[RelationType]bool{
	RelationOwner:       true,
	RelationElement:     true,
	RelationJournalItem: true,
	RelationReference:   true,
	RelationPrimary:     true,
}

// Valid reports whether t is a known relation code.
func (t RelationType) Valid() bool { return validRelationTypes[t] }

// Relation is a typed directed edge between two resources. A given
// (origin, target, type) triple may repeat only when the comment payload
// differs, which supports multiple mentions between the same pair.
type Relation struct {
	ID        string         `json:"id"`
	OriginID  string         `json:"origin_id"`
	TargetID  string         `json:"target_id"`
	Type      RelationType   `json:"relation_type"`
	Comment   map[string]any `json:"comment,omitempty"`
	UserID    string         `json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateRelationRequest is the payload for creating a new relation.
type CreateRelationRequest struct {
	OriginID string         `json:"origin_id"`
	TargetID string         `json:"target_id"`
	Type     RelationType   `json:"relation_type"`
	Comment  map[string]any `json:"comment,omitempty"`
	UserID   string         `json:"user_id"`
}

// Validate checks required fields and the relation code on CreateRelationRequest.
func (r *CreateRelationRequest) Validate() error {
	if r.OriginID == "" {
		return ErrMissingOrigin
	}

	if r.TargetID == "" {
		return ErrMissingTarget
	}

	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRelationType, r.Type)
	}

	if r.UserID == "" {
		return ErrMissingUser
	}

	if r.Comment != nil {
		data, err := json.Marshal(r.Comment)
		if err != nil {
			return fmt.Errorf("invalid comment: %w", err)
		}
		if len(data) > 65536 {
			return ErrFieldTooLong("comment", 65536)
		}
	}

	return nil
}

// Interaction records who touched a resource and when. interaction_type
// "output" is the authorship record; the timeline index for "all traces
// between two dates" walks interactions, not relations.
type Interaction struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ResourceID      string    `json:"resource_id"`
	InteractionType string    `json:"interaction_type"`
	InteractionDate time.Time `json:"interaction_date"`
	Progress        float64   `json:"progress"`
	CreatedAt       time.Time `json:"created_at"`
}

// InteractionOutput is the authorship interaction type. Every user-authored
// resource carries exactly one.
const InteractionOutput = "output"
