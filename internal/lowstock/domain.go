// Package lowstock classifies inventory ledgers against per-restaurant
// thresholds and raises alerts only when an ingredient becomes low or keeps
// depleting, never on repeated polls of an unchanged state.
package lowstock

import (
	"context"

	"github.com/brigade-pos/brigade/internal/inventory"
	"github.com/brigade-pos/brigade/internal/units"
)

// DefaultThreshold applies when a restaurant has no configured threshold.
const DefaultThreshold = 10

// Item is one low-stock report entry.
type Item struct {
	StockID   string     `json:"stockId"`
	Name      string     `json:"name"`
	Remaining float64    `json:"remaining"`
	Unit      units.Unit `json:"unit"`
	Threshold int        `json:"threshold"`
}

// State is the last observation of one ingredient.
type State struct {
	Quantity float64 `json:"quantity"`
	Low      bool    `json:"low"`
}

// InventorySource supplies the ledgers to evaluate.
type InventorySource interface {
	FindAll(ctx context.Context, restaurantID string) ([]inventory.Item, error)
	DistinctRestaurantIDs(ctx context.Context) ([]string, error)
}

// ThresholdStore resolves the configured threshold of a restaurant. The
// second return reports whether one is configured.
type ThresholdStore interface {
	GetThreshold(ctx context.Context, restaurantID string) (int, bool, error)
}

// StateStore retains the last observation per restaurant+ingredient. It is
// injected so it can be persisted, cleared or scoped per test run.
type StateStore interface {
	Last(ctx context.Context, restaurantID, stockID string) (State, bool, error)
	Put(ctx context.Context, restaurantID, stockID string, state State) error
}

// Notifier delivers the alert side effect. Failures are logged by the
// evaluator and never fail the sweep.
type Notifier interface {
	NotifyLowStock(ctx context.Context, restaurantID string, items []Item, threshold int) error
}
