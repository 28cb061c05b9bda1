package orders

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brigade-pos/brigade/internal/inventory"
)

type memoryRepo struct {
	orders map[string]*Order
	txErr  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: make(map[string]*Order)}
}

func (m *memoryRepo) FindByID(_ context.Context, id, restaurantID string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok || o.RestaurantID != restaurantID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (m *memoryRepo) FindByRestaurant(_ context.Context, restaurantID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.RestaurantID == restaurantID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id, restaurantID string, status Status) error {
	o, ok := m.orders[id]
	if !ok || o.RestaurantID != restaurantID {
		return ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(ctx, &memoryTx{repo: m})
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) InsertOrder(_ context.Context, order *Order) error {
	stored := *order
	stored.Lines = nil
	t.repo.orders[order.ID] = &stored
	return nil
}

func (t *memoryTx) InsertLine(_ context.Context, orderID string, _ int, line Line) error {
	t.repo.orders[orderID].Lines = append(t.repo.orders[orderID].Lines, line)
	return nil
}

type recordingEnqueuer struct {
	inputs []inventory.DeductionInput
	err    error
}

func (e *recordingEnqueuer) EnqueueDeduction(_ context.Context, input inventory.DeductionInput) error {
	e.inputs = append(e.inputs, input)
	return e.err
}

func TestCreateRecordsSaleAndEnqueuesDeduction(t *testing.T) {
	repo := newMemoryRepo()
	enqueuer := &recordingEnqueuer{}
	svc := NewService(repo, enqueuer, slog.Default())

	order, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: "r1",
		Lines: []Line{
			{ItemID: "m1", ItemName: "Paneer Tikka", Quantity: 2, Size: "full", Price: 250},
			{ItemID: "m2", ItemName: "Lassi", Quantity: 1, Price: 80},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, order.ID)
	require.Equal(t, StatusPlaced, order.Status)
	require.Equal(t, 580.0, order.Total)

	require.Len(t, enqueuer.inputs, 1)
	input := enqueuer.inputs[0]
	require.Equal(t, "r1", input.RestaurantID)
	require.Equal(t, order.ID, input.SourceID)
	require.Equal(t, "order", input.SourceType)
	require.Len(t, input.Items, 2)
	require.Equal(t, 2, input.Items[0].Quantity)
	require.Equal(t, "full", input.Items[0].Size)
}

func TestCreateSucceedsWhenEnqueueFails(t *testing.T) {
	repo := newMemoryRepo()
	enqueuer := &recordingEnqueuer{err: errors.New("redis down")}
	svc := NewService(repo, enqueuer, slog.Default())

	order, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: "r1",
		Lines:        []Line{{ItemID: "m1", Quantity: 1, Price: 100}},
	})
	require.NoError(t, err)
	require.Len(t, enqueuer.inputs, 1)

	stored, err := svc.Get(context.Background(), order.ID, "r1")
	require.NoError(t, err)
	require.Equal(t, order.ID, stored.ID)
}

func TestCreateSkipsEnqueueForEmptyOrder(t *testing.T) {
	repo := newMemoryRepo()
	enqueuer := &recordingEnqueuer{}
	svc := NewService(repo, enqueuer, slog.Default())

	order, err := svc.Create(context.Background(), CreateInput{RestaurantID: "r1", Notes: "table held"})
	require.NoError(t, err)
	require.Zero(t, order.Total)
	require.Empty(t, enqueuer.inputs)
}

func TestCreateRejectsInvalidLines(t *testing.T) {
	svc := NewService(newMemoryRepo(), &recordingEnqueuer{}, slog.Default())

	_, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: "r1",
		Lines:        []Line{{ItemID: "m1", Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidLine)

	_, err = svc.Create(context.Background(), CreateInput{
		RestaurantID: "r1",
		Lines:        []Line{{ItemID: "", Quantity: 2}},
	})
	require.ErrorIs(t, err, ErrInvalidLine)

	_, err = svc.Create(context.Background(), CreateInput{Lines: []Line{{ItemID: "m1", Quantity: 1}}})
	require.ErrorIs(t, err, ErrRestaurantRequired)
}

func TestCreateDoesNotEnqueueWhenPersistFails(t *testing.T) {
	repo := newMemoryRepo()
	repo.txErr = errors.New("db down")
	enqueuer := &recordingEnqueuer{}
	svc := NewService(repo, enqueuer, slog.Default())

	_, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: "r1",
		Lines:        []Line{{ItemID: "m1", Quantity: 1}},
	})
	require.Error(t, err)
	require.Empty(t, enqueuer.inputs)
}

func TestUpdateStatus(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, slog.Default())

	order, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: "r1",
		Lines:        []Line{{ItemID: "m1", Quantity: 1, Price: 50}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(context.Background(), order.ID, "r1", StatusCompleted))
	stored, err := svc.Get(context.Background(), order.ID, "r1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)

	err = svc.UpdateStatus(context.Background(), order.ID, "r1", Status("refunded"))
	require.ErrorIs(t, err, ErrInvalidStatus)
}
