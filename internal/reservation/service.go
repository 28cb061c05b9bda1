package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort abstracts persistence for the allocator.
type RepositoryPort interface {
	TablePool(ctx context.Context, restaurantID string) ([]string, error)
	Get(ctx context.Context, id, restaurantID string) (*Reservation, error)
	FindByRestaurant(ctx context.Context, restaurantID string) ([]Reservation, error)
	Delete(ctx context.Context, id, restaurantID string) error
	// WithTx serializes the overlap check and the insert/update so the
	// booked set cannot change between check and act.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the transactional operations of one allocation.
type TxRepository interface {
	FindOverlapping(ctx context.Context, restaurantID string, start, end time.Time) ([]Reservation, error)
	Insert(ctx context.Context, res *Reservation) error
	Update(ctx context.Context, res *Reservation) error
}

// Service implements table allocation.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create validates the window, derives the booked set for it and either
// honours the requested table or auto-assigns the first free one in pool
// order. All rejections are terminal; the caller resubmits with different
// parameters.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Reservation, error) {
	if input.RestaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	if !input.StartTime.Before(input.EndTime) {
		return nil, ErrInvalidWindow
	}
	pool, err := s.repo.TablePool(ctx, input.RestaurantID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		pool = DefaultTablePool()
	}

	now := time.Now().UTC()
	res := &Reservation{
		ID:           uuid.NewString(),
		RestaurantID: input.RestaurantID,
		CustomerID:   input.CustomerID,
		CustomerName: input.CustomerName,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		Advance:      input.Advance,
		Payment:      input.Payment,
		Notes:        input.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		table, err := s.allocate(ctx, tx, pool, input.RestaurantID, input.StartTime, input.EndTime, input.TableNumber, "")
		if err != nil {
			return err
		}
		res.TableNumber = table
		return tx.Insert(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Update re-runs allocation for the new window/table, ignoring the booking's
// own row when deriving the booked set.
func (s *Service) Update(ctx context.Context, input UpdateInput) (*Reservation, error) {
	if input.RestaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	existing, err := s.repo.Get(ctx, input.ID, input.RestaurantID)
	if err != nil {
		return nil, err
	}
	start, end := input.StartTime, input.EndTime
	if start.IsZero() {
		start = existing.StartTime
	}
	if end.IsZero() {
		end = existing.EndTime
	}
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}
	pool, err := s.repo.TablePool(ctx, input.RestaurantID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		pool = DefaultTablePool()
	}

	updated := *existing
	updated.StartTime = start
	updated.EndTime = end
	if input.CustomerName != "" {
		updated.CustomerName = input.CustomerName
	}
	if input.Notes != "" {
		updated.Notes = input.Notes
	}
	if input.Advance != 0 {
		updated.Advance = input.Advance
	}
	if input.Payment != 0 {
		updated.Payment = input.Payment
	}
	requested := input.TableNumber
	if requested == "" {
		requested = existing.TableNumber
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		table, err := s.allocate(ctx, tx, pool, input.RestaurantID, start, end, requested, existing.ID)
		if err != nil {
			return err
		}
		updated.TableNumber = table
		updated.UpdatedAt = time.Now().UTC()
		return tx.Update(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// allocate computes the booked set for the window and resolves the table.
// excludeID drops the booking being updated from the conflict set.
func (s *Service) allocate(ctx context.Context, tx TxRepository, pool []string, restaurantID string, start, end time.Time, requested, excludeID string) (string, error) {
	overlapping, err := tx.FindOverlapping(ctx, restaurantID, start, end)
	if err != nil {
		return "", err
	}
	booked := make(map[string]bool, len(overlapping))
	var bookedList []string
	for _, existing := range overlapping {
		if existing.ID == excludeID {
			continue
		}
		if !booked[existing.TableNumber] {
			booked[existing.TableNumber] = true
			bookedList = append(bookedList, existing.TableNumber)
		}
	}
	var available []string
	for _, table := range pool {
		if !booked[table] {
			available = append(available, table)
		}
	}

	if requested == "" {
		if len(available) == 0 {
			return "", &ConflictError{Reason: ErrNoAvailability, Booked: bookedList}
		}
		return available[0], nil
	}
	inPool := false
	for _, table := range pool {
		if table == requested {
			inPool = true
			break
		}
	}
	if !inPool {
		return "", &ConflictError{Reason: ErrInvalidTable, Booked: bookedList, Available: available}
	}
	if booked[requested] {
		return "", &ConflictError{Reason: ErrTableBooked, Booked: bookedList, Available: available}
	}
	return requested, nil
}

// Cancel removes a booking. Reservations are hard-deleted.
func (s *Service) Cancel(ctx context.Context, id, restaurantID string) error {
	if restaurantID == "" {
		return ErrRestaurantRequired
	}
	return s.repo.Delete(ctx, id, restaurantID)
}

// List returns all bookings of a restaurant.
func (s *Service) List(ctx context.Context, restaurantID string) ([]Reservation, error) {
	if restaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	return s.repo.FindByRestaurant(ctx, restaurantID)
}

// Get loads one booking scoped to its restaurant.
func (s *Service) Get(ctx context.Context, id, restaurantID string) (*Reservation, error) {
	if restaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	return s.repo.Get(ctx, id, restaurantID)
}
