package lowstock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGThresholdStore reads and writes per-restaurant thresholds in the
// restaurant_settings table.
type PGThresholdStore struct {
	pool *pgxpool.Pool
}

// NewPGThresholdStore constructs the store.
func NewPGThresholdStore(pool *pgxpool.Pool) *PGThresholdStore {
	return &PGThresholdStore{pool: pool}
}

// GetThreshold returns the configured threshold; ok is false when the
// restaurant has none.
func (s *PGThresholdStore) GetThreshold(ctx context.Context, restaurantID string) (int, bool, error) {
	var threshold int
	err := s.pool.QueryRow(ctx,
		`SELECT low_stock_threshold FROM restaurant_settings WHERE restaurant_id = $1`,
		restaurantID).Scan(&threshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return threshold, true, nil
}

// SetThreshold upserts the restaurant's threshold.
func (s *PGThresholdStore) SetThreshold(ctx context.Context, restaurantID string, threshold int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO restaurant_settings (restaurant_id, low_stock_threshold, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (restaurant_id) DO UPDATE
		SET low_stock_threshold = EXCLUDED.low_stock_threshold,
		    updated_at = EXCLUDED.updated_at
	`, restaurantID, threshold, time.Now().UTC())
	return err
}
