package lowstock

import (
	"context"
	"log/slog"
)

// Evaluator runs low-stock classification and sweeps.
type Evaluator struct {
	inventory  InventorySource
	thresholds ThresholdStore
	state      StateStore
	notifier   Notifier
	logger     *slog.Logger
}

// NewEvaluator wires the evaluator. The notifier may be nil when alerting is
// disabled.
func NewEvaluator(inv InventorySource, thresholds ThresholdStore, state StateStore, notifier Notifier, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{inventory: inv, thresholds: thresholds, state: state, notifier: notifier, logger: logger}
}

// Threshold resolves the restaurant's configured threshold, defaulting to
// DefaultThreshold when unset.
func (e *Evaluator) Threshold(ctx context.Context, restaurantID string) (int, error) {
	value, ok, err := e.thresholds.GetThreshold(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultThreshold, nil
	}
	return value, nil
}

// Evaluate classifies every live ledger of the restaurant. An ingredient is
// LOW iff its remaining quantity is strictly below the threshold; equal is
// not low.
func (e *Evaluator) Evaluate(ctx context.Context, restaurantID string) ([]Item, error) {
	threshold, err := e.Threshold(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	ledgers, err := e.inventory.FindAll(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	var low []Item
	for _, ledger := range ledgers {
		if ledger.TotalRemainingQuantity < float64(threshold) {
			low = append(low, Item{
				StockID:   ledger.ID,
				Name:      ledger.Name,
				Remaining: ledger.TotalRemainingQuantity,
				Unit:      ledger.Unit,
				Threshold: threshold,
			})
		}
	}
	return low, nil
}

// CheckAndFlagNew records the observation and reports whether it is a new
// low-stock event: currently low and either not low before or further
// depleted since the previous poll.
func (e *Evaluator) CheckAndFlagNew(ctx context.Context, restaurantID, stockID string, quantity float64, low bool) (bool, error) {
	previous, seen, err := e.state.Last(ctx, restaurantID, stockID)
	if err != nil {
		return false, err
	}
	newlyLow := low && (!seen || !previous.Low || quantity < previous.Quantity)
	if err := e.state.Put(ctx, restaurantID, stockID, State{Quantity: quantity, Low: low}); err != nil {
		return false, err
	}
	return newlyLow, nil
}

// SweepRestaurant evaluates one restaurant and notifies at most once with
// the full low list when any entry is newly low. Notifier failures are
// swallowed; the sweep still reports its findings.
func (e *Evaluator) SweepRestaurant(ctx context.Context, restaurantID string) ([]Item, error) {
	threshold, err := e.Threshold(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	ledgers, err := e.inventory.FindAll(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	var low []Item
	anyNew := false
	for _, ledger := range ledgers {
		isLow := ledger.TotalRemainingQuantity < float64(threshold)
		newlyLow, err := e.CheckAndFlagNew(ctx, restaurantID, ledger.ID, ledger.TotalRemainingQuantity, isLow)
		if err != nil {
			return nil, err
		}
		if isLow {
			low = append(low, Item{
				StockID:   ledger.ID,
				Name:      ledger.Name,
				Remaining: ledger.TotalRemainingQuantity,
				Unit:      ledger.Unit,
				Threshold: threshold,
			})
		}
		if newlyLow {
			anyNew = true
		}
	}
	if anyNew && len(low) > 0 && e.notifier != nil {
		if err := e.notifier.NotifyLowStock(ctx, restaurantID, low, threshold); err != nil {
			e.logger.Warn("low stock notification failed",
				slog.String("restaurant_id", restaurantID),
				slog.Any("error", err))
		}
	}
	return low, nil
}

// SweepAll evaluates every restaurant that holds inventory. One restaurant
// failing never aborts the others.
func (e *Evaluator) SweepAll(ctx context.Context) error {
	restaurants, err := e.inventory.DistinctRestaurantIDs(ctx)
	if err != nil {
		return err
	}
	for _, restaurantID := range restaurants {
		if _, err := e.SweepRestaurant(ctx, restaurantID); err != nil {
			e.logger.Error("low stock sweep failed",
				slog.String("restaurant_id", restaurantID),
				slog.Any("error", err))
		}
	}
	return nil
}
