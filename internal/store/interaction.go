package store

import (
	"context"
	"fmt"
	"time"

	"github.com/waymarkhq/waymark/internal/models"
)

const interactionColumns = "id, user_id, resource_id, interaction_type, interaction_date, progress, created_at"

// InteractionStore records and queries user/resource interactions.
type InteractionStore struct {
	Base
}

// NewInteractionStore creates a new InteractionStore.
func NewInteractionStore(base Base) *InteractionStore {
	return &InteractionStore{Base: base}
}

func scanInteraction(scan func(...any) error) (*models.Interaction, error) {
	var it models.Interaction

	err := scan(&it.ID, &it.UserID, &it.ResourceID, &it.InteractionType,
		&it.InteractionDate, &it.Progress, &it.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &it, nil
}

// RecordInteraction inserts an interaction row.
func (s *InteractionStore) RecordInteraction(
	ctx context.Context,
	userID, resourceID, interactionType string,
	interactionDate time.Time,
	progress float64,
) (*models.Interaction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		`INSERT INTO interactions (user_id, resource_id, interaction_type, interaction_date, progress)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+interactionColumns,
		userID, resourceID, interactionType, interactionDate, progress)

	it, err := scanInteraction(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("scanning created interaction: %w", err)
	}

	return it, nil
}

// TracesBetween returns the trace resources a user authored in [from, to),
// ordered by interaction date. The timeline walks interactions rather than
// relations.
func (s *InteractionStore) TracesBetween(
	ctx context.Context,
	userID string,
	from, to time.Time,
) ([]models.Resource, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT `+prefixedResourceColumns("r")+`
		FROM interactions i
		JOIN resources r ON r.id = i.resource_id
		WHERE i.user_id = $1
			AND i.interaction_type = $2
			AND r.kind = $3
			AND i.interaction_date >= $4 AND i.interaction_date < $5
		ORDER BY i.interaction_date`,
		userID, models.InteractionOutput, models.KindTrace, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying timeline traces: %w", err)
	}
	defer rows.Close()

	traces := make([]models.Resource, 0, 16)

	for rows.Next() {
		r, err := scanResource(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning timeline trace: %w", err)
		}

		traces = append(traces, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timeline traces: %w", err)
	}

	return traces, nil
}

// prefixedResourceColumns qualifies resourceColumns with a table alias.
func prefixedResourceColumns(alias string) string {
	return alias + ".id, " + alias + ".kind, " + alias + ".title, " + alias + ".subtitle, " +
		alias + ".content, " + alias + ".properties, " + alias + ".maturing_state, " +
		alias + ".publishing_state, " + alias + ".created_at, " + alias + ".updated_at"
}
