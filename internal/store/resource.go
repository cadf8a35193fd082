package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/waymarkhq/waymark/internal/models"
)

// resourceColumns is the canonical column list for SELECT ... RETURNING.
const resourceColumns = "id, kind, title, subtitle, content, properties, maturing_state, publishing_state, created_at, updated_at"

// ResourceStore handles resource CRUD operations.
type ResourceStore struct {
	Base
}

// NewResourceStore creates a new ResourceStore.
func NewResourceStore(base Base) *ResourceStore {
	return &ResourceStore{Base: base}
}

// scanResource scans one resource row using the resourceColumns order.
func scanResource(scan func(...any) error) (*models.Resource, error) {
	var (
		r         models.Resource
		propsJSON []byte
	)

	err := scan(
		&r.ID, &r.Kind, &r.Title, &r.Subtitle, &r.Content, &propsJSON,
		&r.MaturingState, &r.PublishingState, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(propsJSON, &r.Properties); err != nil {
		return nil, fmt.Errorf("decoding resource properties: %w", err)
	}

	return &r, nil
}

// CreateResource inserts a new resource and returns the created record.
func (s *ResourceStore) CreateResource(
	ctx context.Context,
	req models.CreateResourceRequest,
) (*models.Resource, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	propsJSON, err := marshalJSON(req.Properties)
	if err != nil {
		return nil, fmt.Errorf("preparing resource properties: %w", err)
	}

	query := `INSERT INTO resources (id, kind, title, subtitle, content, properties, maturing_state, publishing_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + resourceColumns

	row := s.Pool.QueryRow(ctx, query,
		req.ID, req.Kind, req.Title, req.Subtitle, req.Content, propsJSON,
		req.MaturingState, req.PublishingState,
	)

	r, err := scanResource(row.Scan)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("scanning created resource: %w", err)
	}

	return r, nil
}

// GetResource returns a single resource by ID.
func (s *ResourceStore) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx, "SELECT "+resourceColumns+" FROM resources WHERE id = $1", id)

	r, err := scanResource(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrResourceNotFound
		}

		return nil, fmt.Errorf("scanning resource: %w", err)
	}

	return r, nil
}

// UpdateResource applies a partial update and returns the result. ID and
// kind are never touched.
func (s *ResourceStore) UpdateResource(
	ctx context.Context,
	id string,
	req models.UpdateResourceRequest,
) (*models.Resource, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	setClauses := make([]string, 0, 6)
	args := make([]any, 0, 7)
	argIdx := 1

	addSet := func(col string, val any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if req.Title != nil {
		addSet("title", *req.Title)
	}

	if req.Subtitle != nil {
		addSet("subtitle", *req.Subtitle)
	}

	if req.Content != nil {
		addSet("content", *req.Content)
	}

	if req.Properties != nil {
		propsJSON, err := marshalJSON(req.Properties)
		if err != nil {
			return nil, fmt.Errorf("preparing resource properties: %w", err)
		}

		addSet("properties", propsJSON)
	}

	if req.MaturingState != nil {
		addSet("maturing_state", *req.MaturingState)
	}

	if req.PublishingState != nil {
		addSet("publishing_state", *req.PublishingState)
	}

	if len(setClauses) == 0 {
		return s.GetResource(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")

	query := fmt.Sprintf(
		"UPDATE resources SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argIdx, resourceColumns,
	)
	args = append(args, id)

	row := s.Pool.QueryRow(ctx, query, args...)

	r, err := scanResource(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrResourceNotFound
		}

		return nil, fmt.Errorf("scanning updated resource: %w", err)
	}

	return r, nil
}

// DeleteResource removes a resource by ID and returns the deleted record.
//
// Deletion is refused while inbound non-ownership relations still point at
// the resource. Ownership ("ownr") relations cascade: resources owned by the
// deleted one are deleted recursively under the same rule, and the ownership
// edges themselves are removed.
func (s *ResourceStore) DeleteResource(ctx context.Context, id string) (*models.Resource, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("deleting resource: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	deleted, err := s.deleteResourceTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing delete resource: %w", err)
	}

	return deleted, nil
}

func (s *ResourceStore) deleteResourceTx(ctx context.Context, tx pgx.Tx, id string) (*models.Resource, error) {
	// Non-ownership inbound relations block deletion.
	var blocked bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM relations
			WHERE target_id = $1 AND relation_type <> $2)`,
		id, models.RelationOwner).Scan(&blocked)
	if err != nil {
		return nil, fmt.Errorf("checking inbound relations: %w", err)
	}

	if blocked {
		return nil, fmt.Errorf("resource %s: %w", id, models.ErrResourceReferenced)
	}

	// Cascade to owned resources first (origin owned-by target semantics:
	// an "ownr" edge points from the owned resource to its owner).
	rows, err := tx.Query(ctx,
		"SELECT origin_id FROM relations WHERE target_id = $1 AND relation_type = $2",
		id, models.RelationOwner)
	if err != nil {
		return nil, fmt.Errorf("listing owned resources: %w", err)
	}

	owned := make([]string, 0, 4)

	for rows.Next() {
		var ownedID string
		if err := rows.Scan(&ownedID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning owned resource id: %w", err)
		}

		owned = append(owned, ownedID)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating owned resources: %w", err)
	}

	for _, ownedID := range owned {
		if _, err := s.deleteResourceTx(ctx, tx, ownedID); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM relations WHERE origin_id = $1 OR target_id = $1", id); err != nil {
		return nil, fmt.Errorf("deleting relations for resource: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"DELETE FROM interactions WHERE resource_id = $1", id); err != nil {
		return nil, fmt.Errorf("deleting interactions for resource: %w", err)
	}

	row := tx.QueryRow(ctx,
		"DELETE FROM resources WHERE id = $1 RETURNING "+resourceColumns, id)

	deleted, err := scanResource(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrResourceNotFound
		}

		return nil, fmt.Errorf("scanning deleted resource: %w", err)
	}

	return deleted, nil
}

// ListResourcesByKind returns resources of one kind, newest first.
func (s *ResourceStore) ListResourcesByKind(
	ctx context.Context,
	kind models.ResourceKind,
	limit, offset int,
) ([]models.Resource, bool, error) {
	if limit <= 0 {
		limit = 50
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	if offset < 0 {
		offset = 0
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		"SELECT "+resourceColumns+" FROM resources WHERE kind = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		kind, limit+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("querying resources: %w", err)
	}
	defer rows.Close()

	resources := make([]models.Resource, 0, limit+1)

	for rows.Next() {
		r, err := scanResource(rows.Scan)
		if err != nil {
			return nil, false, fmt.Errorf("scanning resource row: %w", err)
		}

		resources = append(resources, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating resources: %w", err)
	}

	hasMore := len(resources) > limit
	if hasMore {
		resources = resources[:limit]
	}

	return resources, hasMore, nil
}
