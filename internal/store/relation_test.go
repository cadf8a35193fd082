package store

import (
	"context"
	"errors"
	"testing"

	"github.com/waymarkhq/waymark/internal/models"
)

// Invalid requests must be rejected before the store touches the database,
// so these run against an empty Base.

func TestCreateRelation_RejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	s := NewRelationStore(Base{})

	tests := []struct {
		name    string
		req     models.CreateRelationRequest
		wantErr error
	}{
		{
			name: "unknown relation code",
			req: models.CreateRelationRequest{
				OriginID: "origin-1",
				TargetID: "target-1",
				Type:     "frnd",
				UserID:   "user-1",
			},
			wantErr: models.ErrUnknownRelationType,
		},
		{
			name: "missing origin",
			req: models.CreateRelationRequest{
				TargetID: "target-1",
				Type:     models.RelationOwner,
				UserID:   "user-1",
			},
			wantErr: models.ErrMissingOrigin,
		},
		{
			name: "missing user",
			req: models.CreateRelationRequest{
				OriginID: "origin-1",
				TargetID: "target-1",
				Type:     models.RelationElement,
			},
			wantErr: models.ErrMissingUser,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := s.CreateRelation(context.Background(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateRelation error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinkIfAbsent_RejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	s := NewRelationStore(Base{})

	req := models.CreateRelationRequest{
		OriginID: "origin-1",
		TargetID: "target-1",
		Type:     "frnd",
		UserID:   "user-1",
	}

	if _, err := s.LinkIfAbsent(context.Background(), req); !errors.Is(err, models.ErrUnknownRelationType) {
		t.Fatalf("LinkIfAbsent error = %v, want %v", err, models.ErrUnknownRelationType)
	}
}
