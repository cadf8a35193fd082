package models_test

import (
	"errors"
	"testing"

	"github.com/waymarkhq/waymark/internal/models"
)

func validRelation() models.CreateRelationRequest {
	return models.CreateRelationRequest{
		OriginID: "origin-1",
		TargetID: "target-1",
		Type:     models.RelationOwner,
		UserID:   "user-1",
	}
}

func TestCreateRelationRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*models.CreateRelationRequest)
		wantErr error
	}{
		{"valid", func(*models.CreateRelationRequest) {}, nil},
		{"missing origin", func(r *models.CreateRelationRequest) { r.OriginID = "" }, models.ErrMissingOrigin},
		{"missing target", func(r *models.CreateRelationRequest) { r.TargetID = "" }, models.ErrMissingTarget},
		{"missing user", func(r *models.CreateRelationRequest) { r.UserID = "" }, models.ErrMissingUser},
		{"unknown type", func(r *models.CreateRelationRequest) { r.Type = "frnd" }, models.ErrUnknownRelationType},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := validRelation()
			tt.mutate(&req)

			err := req.Validate()
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

func TestRelationType_Valid(t *testing.T) {
	t.Parallel()

	for _, rt := range []models.RelationType{
		models.RelationOwner,
		models.RelationElement,
		models.RelationJournalItem,
		models.RelationReference,
		models.RelationPrimary,
	} {
		if !rt.Valid() {
			t.Errorf("%q should be a valid relation code", rt)
		}
	}

	if models.RelationType("owns").Valid() {
		t.Error("unknown codes must be rejected")
	}
}
