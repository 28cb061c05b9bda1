package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	pool         []string
	reservations map[string]*Reservation
}

func newMemoryRepo(pool ...string) *memoryRepo {
	return &memoryRepo{pool: pool, reservations: make(map[string]*Reservation)}
}

func (r *memoryRepo) TablePool(ctx context.Context, restaurantID string) ([]string, error) {
	return r.pool, nil
}

func (r *memoryRepo) Get(ctx context.Context, id, restaurantID string) (*Reservation, error) {
	res, ok := r.reservations[id]
	if !ok || res.RestaurantID != restaurantID {
		return nil, ErrNotFound
	}
	clone := *res
	return &clone, nil
}

func (r *memoryRepo) FindByRestaurant(ctx context.Context, restaurantID string) ([]Reservation, error) {
	var out []Reservation
	for _, res := range r.reservations {
		if res.RestaurantID == restaurantID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *memoryRepo) Delete(ctx context.Context, id, restaurantID string) error {
	res, ok := r.reservations[id]
	if !ok || res.RestaurantID != restaurantID {
		return ErrNotFound
	}
	delete(r.reservations, id)
	return nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) FindOverlapping(ctx context.Context, restaurantID string, start, end time.Time) ([]Reservation, error) {
	var out []Reservation
	for _, res := range t.repo.reservations {
		if res.RestaurantID == restaurantID && Overlaps(res.StartTime, res.EndTime, start, end) {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (t *memoryTx) Insert(ctx context.Context, res *Reservation) error {
	clone := *res
	t.repo.reservations[res.ID] = &clone
	return nil
}

func (t *memoryTx) Update(ctx context.Context, res *Reservation) error {
	if _, ok := t.repo.reservations[res.ID]; !ok {
		return ErrNotFound
	}
	clone := *res
	t.repo.reservations[res.ID] = &clone
	return nil
}

func at(hour, minute int) time.Time {
	return time.Date(2026, time.September, 1, hour, minute, 0, 0, time.UTC)
}

func TestCreateRejectsInvalidWindow(t *testing.T) {
	svc := NewService(newMemoryRepo("T1"))
	_, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: "r1", StartTime: at(12, 0), EndTime: at(11, 0),
	})
	require.ErrorIs(t, err, ErrInvalidWindow)

	_, err = svc.Create(context.Background(), CreateInput{
		RestaurantID: "r1", StartTime: at(12, 0), EndTime: at(12, 0),
	})
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestHalfOpenIntervalSemantics(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo("T1"))

	first, err := svc.Create(ctx, CreateInput{
		RestaurantID: "r1", CustomerName: "Ada",
		StartTime: at(10, 0), EndTime: at(11, 0), TableNumber: "T1",
	})
	require.NoError(t, err)
	require.Equal(t, "T1", first.TableNumber)

	// Back-to-back is allowed: [10:00,11:00) then [11:00,12:00).
	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", CustomerName: "Grace",
		StartTime: at(11, 0), EndTime: at(12, 0), TableNumber: "T1",
	})
	require.NoError(t, err)

	// [10:30,11:30) overlaps the first booking.
	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", CustomerName: "Edsger",
		StartTime: at(10, 30), EndTime: at(11, 30), TableNumber: "T1",
	})
	require.ErrorIs(t, err, ErrTableBooked)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Contains(t, conflict.Booked, "T1")
}

func TestAutoAssignPicksFirstFreeInPoolOrder(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("T1", "T2", "T3", "T4", "T5")
	svc := NewService(repo)

	for _, table := range []string{"T1", "T2"} {
		_, err := svc.Create(ctx, CreateInput{
			RestaurantID: "r1", StartTime: at(19, 0), EndTime: at(21, 0), TableNumber: table,
		})
		require.NoError(t, err)
	}

	res, err := svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(19, 0), EndTime: at(21, 0),
	})
	require.NoError(t, err)
	require.Equal(t, "T3", res.TableNumber)
}

func TestRejectionsAreDistinguishable(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("T1", "T2")
	svc := NewService(repo)

	_, err := svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(18, 0), EndTime: at(20, 0), TableNumber: "T9",
	})
	require.ErrorIs(t, err, ErrInvalidTable)

	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(18, 0), EndTime: at(20, 0), TableNumber: "T1",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(18, 0), EndTime: at(20, 0), TableNumber: "T1",
	})
	require.ErrorIs(t, err, ErrTableBooked)

	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(18, 0), EndTime: at(20, 0), TableNumber: "T2",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(18, 0), EndTime: at(20, 0),
	})
	require.ErrorIs(t, err, ErrNoAvailability)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.ElementsMatch(t, []string{"T1", "T2"}, conflict.Booked)
}

func TestDefaultSyntheticPool(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo())

	res, err := svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(12, 0), EndTime: at(13, 0),
	})
	require.NoError(t, err)
	require.Equal(t, "T1", res.TableNumber)

	res, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(12, 0), EndTime: at(13, 0),
	})
	require.NoError(t, err)
	require.Equal(t, "T2", res.TableNumber)

	pool := DefaultTablePool()
	require.Len(t, pool, 20)
	require.Equal(t, "T20", pool[19])
}

func TestUpdateIgnoresOwnBooking(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("T1", "T2")
	svc := NewService(repo)

	res, err := svc.Create(ctx, CreateInput{
		RestaurantID: "r1", CustomerName: "Ada",
		StartTime: at(18, 0), EndTime: at(20, 0), TableNumber: "T1",
	})
	require.NoError(t, err)

	// Shifting the same booking within its own window must not self-conflict.
	updated, err := svc.Update(ctx, UpdateInput{
		ID: res.ID, RestaurantID: "r1",
		StartTime: at(18, 30), EndTime: at(20, 30),
	})
	require.NoError(t, err)
	require.Equal(t, "T1", updated.TableNumber)

	// Moving onto a table someone else holds still conflicts.
	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(18, 0), EndTime: at(20, 0), TableNumber: "T2",
	})
	require.NoError(t, err)
	_, err = svc.Update(ctx, UpdateInput{
		ID: res.ID, RestaurantID: "r1",
		StartTime: at(18, 30), EndTime: at(20, 30), TableNumber: "T2",
	})
	require.ErrorIs(t, err, ErrTableBooked)
}

func TestCancelDeletesBooking(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo("T1")
	svc := NewService(repo)

	res, err := svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(9, 0), EndTime: at(10, 0),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, res.ID, "r1"))
	require.ErrorIs(t, svc.Cancel(ctx, res.ID, "r1"), ErrNotFound)

	// The slot frees up immediately.
	_, err = svc.Create(ctx, CreateInput{
		RestaurantID: "r1", StartTime: at(9, 0), EndTime: at(10, 0), TableNumber: "T1",
	})
	require.NoError(t, err)
}
