package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/waymarkhq/waymark/internal/models"
)

// LandmarkStore provides landmark-specific operations on top of the generic
// resource and relation tables.
type LandmarkStore struct {
	Base
}

// NewLandmarkStore creates a new LandmarkStore.
func NewLandmarkStore(base Base) *LandmarkStore {
	return &LandmarkStore{Base: base}
}

// LandmarksForAnalysis returns all landmarks owned by the given analysis,
// in creation order. Ownership is the "ownr" edge from landmark to analysis.
func (s *LandmarkStore) LandmarksForAnalysis(
	ctx context.Context,
	analysisID string,
) ([]models.Landmark, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT `+prefixedResourceColumns("r")+`
		FROM relations rel
		JOIN resources r ON r.id = rel.origin_id
		WHERE rel.target_id = $1 AND rel.relation_type = $2 AND r.kind = $3
		ORDER BY r.created_at`,
		analysisID, models.RelationOwner, models.KindLandmark)
	if err != nil {
		return nil, fmt.Errorf("querying analysis landmarks: %w", err)
	}
	defer rows.Close()

	landmarks := make([]models.Landmark, 0, 16)

	for rows.Next() {
		r, err := scanResource(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning landmark row: %w", err)
		}

		l, err := models.LandmarkFromResource(r)
		if err != nil {
			return nil, err
		}

		landmarks = append(landmarks, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating landmarks: %w", err)
	}

	return landmarks, nil
}

// LandmarksForUser returns the broader user-level candidate pool: landmarks
// the user authored, across all analyses.
func (s *LandmarkStore) LandmarksForUser(
	ctx context.Context,
	userID string,
) ([]models.Landmark, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT DISTINCT `+prefixedResourceColumns("r")+`
		FROM interactions i
		JOIN resources r ON r.id = i.resource_id
		WHERE i.user_id = $1 AND i.interaction_type = $2 AND r.kind = $3
		ORDER BY r.created_at`,
		userID, models.InteractionOutput, models.KindLandmark)
	if err != nil {
		return nil, fmt.Errorf("querying user landmarks: %w", err)
	}
	defer rows.Close()

	landmarks := make([]models.Landmark, 0, 16)

	for rows.Next() {
		r, err := scanResource(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning landmark row: %w", err)
		}

		l, err := models.LandmarkFromResource(r)
		if err != nil {
			return nil, err
		}

		landmarks = append(landmarks, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating landmarks: %w", err)
	}

	return landmarks, nil
}

// CreateCopyChild forks a landmark: the child carries identical title,
// content and landmark type, a fresh id, and parent_id pointing at the
// source. The child is owned by the given analysis and credited to the user.
func (s *LandmarkStore) CreateCopyChild(
	ctx context.Context,
	parentID, userID, analysisID string,
) (*models.Landmark, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		"SELECT "+resourceColumns+" FROM resources WHERE id = $1 AND kind = $2",
		parentID, models.KindLandmark)

	parentRes, err := scanResource(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("loading parent landmark %s: %w", parentID, models.ErrResourceNotFound)
	}

	parent, err := models.LandmarkFromResource(parentRes)
	if err != nil {
		return nil, err
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("forking landmark: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	childID := uuid.New().String()
	props, err := marshalJSON(models.LandmarkProperties(parent.LandmarkType, parent.IdentityState, parentID))
	if err != nil {
		return nil, fmt.Errorf("preparing child properties: %w", err)
	}

	childRow := tx.QueryRow(ctx,
		`INSERT INTO resources (id, kind, title, subtitle, content, properties, maturing_state, publishing_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+resourceColumns,
		childID, models.KindLandmark, parent.Title, parent.Subtitle, parent.Content,
		props, parent.MaturingState, parent.PublishingState)

	childRes, err := scanResource(childRow.Scan)
	if err != nil {
		return nil, fmt.Errorf("scanning forked landmark: %w", err)
	}

	hash, err := commentHash(nil)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO relations (origin_id, target_id, relation_type, comment, comment_hash, user_id)
		VALUES ($1, $2, $3, '{}'::jsonb, $4, $5)`,
		childID, analysisID, models.RelationOwner, hash, userID); err != nil {
		return nil, fmt.Errorf("creating ownership relation for fork: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO interactions (user_id, resource_id, interaction_type, interaction_date, progress)
		VALUES ($1, $2, $3, NOW(), 0)`,
		userID, childID, models.InteractionOutput); err != nil {
		return nil, fmt.Errorf("recording fork authorship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing landmark fork: %w", err)
	}

	return models.LandmarkFromResource(childRes)
}
