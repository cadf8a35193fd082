package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/waymarkhq/waymark/internal/models"
)

const relationColumns = "id, origin_id, target_id, relation_type, comment, user_id, created_at"

// RelationStore provides relation (edge) operations.
type RelationStore struct {
	Base
}

// NewRelationStore creates a new RelationStore.
func NewRelationStore(base Base) *RelationStore {
	return &RelationStore{Base: base}
}

func scanRelation(scan func(...any) error) (*models.Relation, error) {
	var (
		rel         models.Relation
		commentJSON []byte
	)

	err := scan(&rel.ID, &rel.OriginID, &rel.TargetID, &rel.Type, &commentJSON, &rel.UserID, &rel.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(commentJSON, &rel.Comment); err != nil {
		return nil, fmt.Errorf("decoding relation comment: %w", err)
	}

	return &rel, nil
}

// CreateRelation inserts a new relation after validating the request and
// verifying both endpoints exist. Unknown relation codes are rejected here,
// not just at the API boundary, so internal callers cannot insert one.
// Duplicate (origin, target, type, comment) quads are rejected.
func (s *RelationStore) CreateRelation(
	ctx context.Context,
	req models.CreateRelationRequest,
) (*models.Relation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating relation: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	// Verify origin and target resources exist in a single query.
	var originExists, targetExists bool
	err = tx.QueryRow(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM resources WHERE id = $1),
			EXISTS(SELECT 1 FROM resources WHERE id = $2)`,
		req.OriginID, req.TargetID).Scan(&originExists, &targetExists)
	if err != nil {
		return nil, fmt.Errorf("checking relation endpoints: %w", err)
	}

	if !originExists {
		return nil, fmt.Errorf("origin resource %q: %w", req.OriginID, models.ErrResourceNotFound)
	}

	if !targetExists {
		return nil, fmt.Errorf("target resource %q: %w", req.TargetID, models.ErrResourceNotFound)
	}

	commentJSON, err := marshalJSON(req.Comment)
	if err != nil {
		return nil, fmt.Errorf("preparing relation comment: %w", err)
	}

	hash, err := commentHash(req.Comment)
	if err != nil {
		return nil, fmt.Errorf("hashing relation comment: %w", err)
	}

	query := `INSERT INTO relations (origin_id, target_id, relation_type, comment, comment_hash, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + relationColumns

	row := tx.QueryRow(ctx, query,
		req.OriginID, req.TargetID, req.Type, commentJSON, hash, req.UserID)

	rel, err := scanRelation(row.Scan)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("scanning created relation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing create relation: %w", err)
	}

	return rel, nil
}

// LinkIfAbsent upserts a relation by its natural key
// (origin, target, type, comment). If an identical link already exists the
// existing relation is returned unchanged; the second call is a no-op.
func (s *RelationStore) LinkIfAbsent(
	ctx context.Context,
	req models.CreateRelationRequest,
) (*models.Relation, error) {
	rel, err := s.CreateRelation(ctx, req)
	if err == nil {
		return rel, nil
	}

	if !errors.Is(err, models.ErrDuplicateKey) {
		return nil, err
	}

	hash, err := commentHash(req.Comment)
	if err != nil {
		return nil, fmt.Errorf("hashing relation comment: %w", err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		"SELECT "+relationColumns+` FROM relations
		WHERE origin_id = $1 AND target_id = $2 AND relation_type = $3 AND comment_hash = $4`,
		req.OriginID, req.TargetID, req.Type, hash)

	rel, err = scanRelation(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("fetching existing relation: %w", err)
	}

	return rel, nil
}

// RelationsFrom returns relations whose origin is the given resource,
// optionally filtered by type.
func (s *RelationStore) RelationsFrom(
	ctx context.Context,
	originID string,
	typeFilter models.RelationType,
) ([]models.Relation, error) {
	return s.listRelations(ctx, "origin_id", originID, typeFilter)
}

// RelationsTo returns relations whose target is the given resource,
// optionally filtered by type.
func (s *RelationStore) RelationsTo(
	ctx context.Context,
	targetID string,
	typeFilter models.RelationType,
) ([]models.Relation, error) {
	return s.listRelations(ctx, "target_id", targetID, typeFilter)
}

func (s *RelationStore) listRelations(
	ctx context.Context,
	column, id string,
	typeFilter models.RelationType,
) ([]models.Relation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := "SELECT " + relationColumns + " FROM relations WHERE " + column + " = $1"
	args := []any{id}

	if typeFilter != "" {
		query += " AND relation_type = $2"
		args = append(args, typeFilter)
	}

	query += " ORDER BY created_at"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	relations := make([]models.Relation, 0, 8)

	for rows.Next() {
		rel, err := scanRelation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning relation row: %w", err)
		}

		relations = append(relations, *rel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relations: %w", err)
	}

	return relations, nil
}

// DeleteRelation removes one relation by ID.
func (s *RelationStore) DeleteRelation(ctx context.Context, relationID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.Pool.Exec(ctx, "DELETE FROM relations WHERE id = $1", relationID)
	if err != nil {
		return fmt.Errorf("executing relation delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrRelationNotFound
	}

	return nil
}
