package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingTitle        = errors.New("title is required")
	ErrMissingOrigin       = errors.New("origin_id is required")
	ErrMissingTarget       = errors.New("target_id is required")
	ErrMissingUser         = errors.New("user_id is required")
	ErrMissingMirror       = errors.New("trace_mirror_id is required")
	ErrMissingMention      = errors.New("mention is required")
	ErrUnknownKind         = errors.New("unknown resource kind")
	ErrUnknownRelationType = errors.New("unknown relation type")
)

// Sentinel errors for entity lookups.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrRelationNotFound = errors.New("relation not found")
)

// ErrKindMismatch indicates a typed view was requested for a resource of a
// different kind.
var ErrKindMismatch = errors.New("resource kind mismatch")

// ErrResourceReferenced indicates a delete was refused because inbound
// non-ownership relations still point at the resource.
var ErrResourceReferenced = errors.New("resource still referenced by relations")

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}
