package lowstock

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/brigade-pos/brigade/internal/inventory"
	"github.com/brigade-pos/brigade/internal/units"
)

type memoryInventory struct {
	ledgers map[string][]inventory.Item
	failFor map[string]error
}

func (m *memoryInventory) FindAll(_ context.Context, restaurantID string) ([]inventory.Item, error) {
	if err, ok := m.failFor[restaurantID]; ok {
		return nil, err
	}
	return m.ledgers[restaurantID], nil
}

func (m *memoryInventory) DistinctRestaurantIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id := range m.ledgers {
		ids = append(ids, id)
	}
	for id := range m.failFor {
		ids = append(ids, id)
	}
	return ids, nil
}

type memoryThresholds struct {
	values map[string]int
}

func (m *memoryThresholds) GetThreshold(_ context.Context, restaurantID string) (int, bool, error) {
	v, ok := m.values[restaurantID]
	return v, ok, nil
}

type recordingNotifier struct {
	calls []notification
	err   error
}

type notification struct {
	restaurantID string
	items        []Item
	threshold    int
}

func (n *recordingNotifier) NotifyLowStock(_ context.Context, restaurantID string, items []Item, threshold int) error {
	n.calls = append(n.calls, notification{restaurantID: restaurantID, items: items, threshold: threshold})
	return n.err
}

func ledger(id, restaurantID, name string, remaining float64) inventory.Item {
	return inventory.Item{
		ID:                     id,
		RestaurantID:           restaurantID,
		Name:                   name,
		Unit:                   units.UnitKilogram,
		TotalRemainingQuantity: remaining,
	}
}

func newTestEvaluator(inv *memoryInventory, thresholds *memoryThresholds, notifier Notifier) *Evaluator {
	return NewEvaluator(inv, thresholds, NewMemoryStateStore(), notifier, slog.Default())
}

func TestEvaluateThresholdIsStrict(t *testing.T) {
	inv := &memoryInventory{ledgers: map[string][]inventory.Item{
		"r1": {
			ledger("s1", "r1", "Flour", 10),
			ledger("s2", "r1", "Sugar", 9.99),
			ledger("s3", "r1", "Salt", 42),
		},
	}}
	e := newTestEvaluator(inv, &memoryThresholds{}, nil)

	low, err := e.Evaluate(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "s2", low[0].StockID)
	require.Equal(t, DefaultThreshold, low[0].Threshold)
}

func TestEvaluateUsesConfiguredThreshold(t *testing.T) {
	inv := &memoryInventory{ledgers: map[string][]inventory.Item{
		"r1": {ledger("s1", "r1", "Flour", 15)},
	}}
	thresholds := &memoryThresholds{values: map[string]int{"r1": 20}}
	e := newTestEvaluator(inv, thresholds, nil)

	low, err := e.Evaluate(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, 20, low[0].Threshold)
}

func TestSweepNotifiesOnlyOnNewLowEvents(t *testing.T) {
	inv := &memoryInventory{ledgers: map[string][]inventory.Item{
		"r1": {ledger("s1", "r1", "Flour", 5)},
	}}
	notifier := &recordingNotifier{}
	e := newTestEvaluator(inv, &memoryThresholds{}, notifier)

	// First sweep: 5 < 10, newly low, alert goes out.
	low, err := e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Len(t, notifier.calls, 1)

	// Same quantity on the next poll: still low but not newly low.
	_, err = e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)

	// Further depletion re-triggers the alert.
	inv.ledgers["r1"] = []inventory.Item{ledger("s1", "r1", "Flour", 3)}
	_, err = e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 2)
	require.Equal(t, 3.0, notifier.calls[1].items[0].Remaining)
}

func TestSweepRecoveryThenDepletionAlertsAgain(t *testing.T) {
	inv := &memoryInventory{ledgers: map[string][]inventory.Item{
		"r1": {ledger("s1", "r1", "Flour", 5)},
	}}
	notifier := &recordingNotifier{}
	e := newTestEvaluator(inv, &memoryThresholds{}, notifier)

	_, err := e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)

	// Restocked above threshold, no alert.
	inv.ledgers["r1"] = []inventory.Item{ledger("s1", "r1", "Flour", 25)}
	_, err = e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)

	// Dropping low again is a fresh event.
	inv.ledgers["r1"] = []inventory.Item{ledger("s1", "r1", "Flour", 8)}
	_, err = e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 2)
}

func TestSweepIncludesWholeLowListInAlert(t *testing.T) {
	inv := &memoryInventory{ledgers: map[string][]inventory.Item{
		"r1": {
			ledger("s1", "r1", "Flour", 5),
			ledger("s2", "r1", "Sugar", 7),
			ledger("s3", "r1", "Salt", 50),
		},
	}}
	notifier := &recordingNotifier{}
	e := newTestEvaluator(inv, &memoryThresholds{}, notifier)

	_, err := e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)
	require.Len(t, notifier.calls[0].items, 2)

	// Only Sugar depletes further; the alert still carries both entries.
	inv.ledgers["r1"][1] = ledger("s2", "r1", "Sugar", 6)
	_, err = e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 2)
	require.Len(t, notifier.calls[1].items, 2)
}

func TestSweepSwallowsNotifierFailure(t *testing.T) {
	inv := &memoryInventory{ledgers: map[string][]inventory.Item{
		"r1": {ledger("s1", "r1", "Flour", 2)},
	}}
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	e := newTestEvaluator(inv, &memoryThresholds{}, notifier)

	low, err := e.SweepRestaurant(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Len(t, notifier.calls, 1)
}

func TestSweepAllIsolatesFailingRestaurant(t *testing.T) {
	inv := &memoryInventory{
		ledgers: map[string][]inventory.Item{
			"good": {ledger("s1", "good", "Flour", 5)},
		},
		failFor: map[string]error{"bad": errors.New("connection reset")},
	}
	notifier := &recordingNotifier{}
	e := newTestEvaluator(inv, &memoryThresholds{}, notifier)

	err := e.SweepAll(context.Background())
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)
	require.Equal(t, "good", notifier.calls[0].restaurantID)
}

func TestRedisStateStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStateStore(client)
	ctx := context.Background()

	_, seen, err := store.Last(ctx, "r1", "s1")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, store.Put(ctx, "r1", "s1", State{Quantity: 4.5, Low: true}))

	state, seen, err := store.Last(ctx, "r1", "s1")
	require.NoError(t, err)
	require.True(t, seen)
	require.Equal(t, State{Quantity: 4.5, Low: true}, state)

	// Other restaurants keep their own hash.
	_, seen, err = store.Last(ctx, "r2", "s1")
	require.NoError(t, err)
	require.False(t, seen)
}
