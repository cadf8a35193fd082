package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/waymarkhq/waymark/internal/models"
)

const referenceColumns = `tag_id, trace_mirror_id, landmark_id, mention, reference_type,
	context_tags, reference_variants, parent_reference_id, same_object_tag_id, is_user_specific, created_at`

// ReferenceStore persists grounded mention rows.
type ReferenceStore struct {
	Base
}

// NewReferenceStore creates a new ReferenceStore.
func NewReferenceStore(base Base) *ReferenceStore {
	return &ReferenceStore{Base: base}
}

func scanReference(scan func(...any) error) (*models.Reference, error) {
	var (
		ref          models.Reference
		tagsJSON     []byte
		variantsJSON []byte
	)

	err := scan(&ref.TagID, &ref.TraceMirrorID, &ref.LandmarkID, &ref.Mention,
		&ref.ReferenceType, &tagsJSON, &variantsJSON, &ref.ParentReferenceID,
		&ref.SameObjectTagID, &ref.IsUserSpecific, &ref.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tagsJSON, &ref.ContextTags); err != nil {
		return nil, fmt.Errorf("decoding context tags: %w", err)
	}

	if err := json.Unmarshal(variantsJSON, &ref.ReferenceVariants); err != nil {
		return nil, fmt.Errorf("decoding reference variants: %w", err)
	}

	return &ref, nil
}

// CreateReference inserts a reference row. An empty TagID is auto-generated.
func (s *ReferenceStore) CreateReference(
	ctx context.Context,
	req models.CreateReferenceRequest,
) (*models.Reference, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if req.TagID == "" {
		req.TagID = uuid.New().String()
	}

	tags := req.ContextTags
	if tags == nil {
		tags = []string{}
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encoding context tags: %w", err)
	}

	variantsJSON, err := marshalJSON(req.ReferenceVariants)
	if err != nil {
		return nil, fmt.Errorf("preparing reference variants: %w", err)
	}

	row := s.Pool.QueryRow(ctx,
		`INSERT INTO "references" (tag_id, trace_mirror_id, landmark_id, mention, reference_type,
			context_tags, reference_variants, parent_reference_id, same_object_tag_id, is_user_specific)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+referenceColumns,
		req.TagID, req.TraceMirrorID, req.LandmarkID, req.Mention, req.ReferenceType,
		tagsJSON, variantsJSON, req.ParentReferenceID, req.SameObjectTagID, req.IsUserSpecific)

	ref, err := scanReference(row.Scan)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("scanning created reference: %w", err)
	}

	return ref, nil
}

// ReferencesForMirror returns all references extracted from one trace mirror.
func (s *ReferenceStore) ReferencesForMirror(
	ctx context.Context,
	traceMirrorID string,
) ([]models.Reference, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT `+referenceColumns+` FROM "references" WHERE trace_mirror_id = $1 ORDER BY created_at`,
		traceMirrorID)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	defer rows.Close()

	refs := make([]models.Reference, 0, 8)

	for rows.Next() {
		ref, err := scanReference(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning reference row: %w", err)
		}

		refs = append(refs, *ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating references: %w", err)
	}

	return refs, nil
}
