// Package store provides focused, single-concern data access stores for the
// waymark resource graph.
//
// Each store owns one domain (resources, relations, interactions,
// references) and embeds shared helpers (Pool, logger) via the Base struct.
// Stores never import each other; shared logic lives in this file.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sirupsen/logrus"

	"github.com/waymarkhq/waymark/internal/dbpool"
)

const defaultQueryTimeout = 30 * time.Second

// maxListLimit is a defense-in-depth cap on limit values for list queries.
const maxListLimit = 1000

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// beginTx starts a read-write transaction.
func (b *Base) beginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return tx, nil
}

// GetUserByAPIKey looks up a user ID by API key hash.
func (b *Base) GetUserByAPIKey(ctx context.Context, apiKey string) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	hash := sha256.Sum256([]byte(apiKey))
	apiKeyHash := hex.EncodeToString(hash[:])

	var userID string

	err := b.Pool.QueryRow(ctx, "SELECT id FROM users WHERE api_key_hash = $1", apiKeyHash).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("looking up user by API key: %w", err)
	}

	return userID, nil
}

// marshalJSON encodes a map for a JSONB column, defaulting nil to {}.
func marshalJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding jsonb payload: %w", err)
	}

	return data, nil
}

// commentHash computes the natural-key hash of a relation comment. The hash
// is over the canonical JSON encoding so that nil and {} collide, which is
// what makes no-comment links idempotent.
func commentHash(comment map[string]any) (string, error) {
	data, err := marshalJSON(comment)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}
