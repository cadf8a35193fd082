package models_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/waymarkhq/waymark/internal/models"
)

func TestCreateResourceRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     models.CreateResourceRequest
		wantErr error
	}{
		{"valid trace", models.CreateResourceRequest{Kind: models.KindTrace, Title: "entry"}, nil},
		{"missing title", models.CreateResourceRequest{Kind: models.KindTrace}, models.ErrMissingTitle},
		{"unknown kind", models.CreateResourceRequest{Kind: "widget", Title: "t"}, models.ErrUnknownKind},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.req.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateResourceRequest_Defaults(t *testing.T) {
	t.Parallel()

	req := models.CreateResourceRequest{Kind: models.KindJournal, Title: "journal"}

	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := uuid.Parse(req.ID); err != nil {
		t.Errorf("expected an auto-generated uuid, got %q", req.ID)
	}

	if req.MaturingState != models.MaturingDraft || req.PublishingState != models.PublishingPrivate {
		t.Errorf("states not defaulted: %q %q", req.MaturingState, req.PublishingState)
	}
}

func TestCreateResourceRequest_Limits(t *testing.T) {
	t.Parallel()

	long := models.CreateResourceRequest{
		Kind:  models.KindTrace,
		Title: strings.Repeat("x", 1001),
	}
	if err := long.Validate(); err == nil {
		t.Error("expected a title length error")
	}

	big := models.CreateResourceRequest{
		Kind:    models.KindTrace,
		Title:   "t",
		Content: strings.Repeat("x", 1<<20+1),
	}
	if err := big.Validate(); err == nil {
		t.Error("expected a content length error")
	}
}

func TestUpdateResourceRequest_Validate(t *testing.T) {
	t.Parallel()

	empty := ""
	if err := (&models.UpdateResourceRequest{Title: &empty}).Validate(); !errors.Is(err, models.ErrMissingTitle) {
		t.Errorf("expected ErrMissingTitle, got %v", err)
	}

	ok := "renamed"
	if err := (&models.UpdateResourceRequest{Title: &ok}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := (&models.UpdateResourceRequest{}).Validate(); err != nil {
		t.Errorf("empty update must be valid, got %v", err)
	}
}
