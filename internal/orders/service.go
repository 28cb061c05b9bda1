package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brigade-pos/brigade/internal/inventory"
	"github.com/brigade-pos/brigade/internal/units"
)

// RepositoryPort abstracts order persistence.
type RepositoryPort interface {
	FindByID(ctx context.Context, id, restaurantID string) (*Order, error)
	FindByRestaurant(ctx context.Context, restaurantID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id, restaurantID string, status Status) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the write operations available inside a transaction.
type TxRepository interface {
	InsertOrder(ctx context.Context, order *Order) error
	InsertLine(ctx context.Context, orderID string, position int, line Line) error
}

// DeductionEnqueuer submits a committed sale to the background deduction
// worker. Stock is never decremented on the request path.
type DeductionEnqueuer interface {
	EnqueueDeduction(ctx context.Context, input inventory.DeductionInput) error
}

// Service implements order recording.
type Service struct {
	repo     RepositoryPort
	enqueuer DeductionEnqueuer
	logger   *slog.Logger
}

// NewService wires the order service. The enqueuer may be nil when background
// deduction is disabled.
func NewService(repo RepositoryPort, enqueuer DeductionEnqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, enqueuer: enqueuer, logger: logger}
}

// Create persists the sale and, after commit, queues its inventory deduction.
// A queue failure never fails the sale; the deduction is retried by the
// worker's sweep or replayed manually.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	if input.RestaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	for _, line := range input.Lines {
		if line.ItemID == "" || line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %q quantity %d", ErrInvalidLine, line.ItemID, line.Quantity)
		}
	}

	now := time.Now().UTC()
	order := &Order{
		ID:           uuid.NewString(),
		RestaurantID: input.RestaurantID,
		Status:       StatusPlaced,
		Lines:        input.Lines,
		Notes:        input.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, line := range input.Lines {
		order.Total = units.Add(order.Total, line.LineTotal())
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		for i, line := range order.Lines {
			if err := tx.InsertLine(ctx, order.ID, i, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record order: %w", err)
	}

	s.enqueueDeduction(ctx, order)
	return order, nil
}

func (s *Service) enqueueDeduction(ctx context.Context, order *Order) {
	if s.enqueuer == nil || len(order.Lines) == 0 {
		return
	}
	sold := make([]inventory.SoldItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		sold = append(sold, inventory.SoldItem{
			ItemID:   line.ItemID,
			ItemName: line.ItemName,
			Quantity: line.Quantity,
			Size:     line.Size,
			Price:    line.Price,
		})
	}
	input := inventory.DeductionInput{
		RestaurantID: order.RestaurantID,
		SourceID:     order.ID,
		SourceType:   "order",
		Items:        sold,
	}
	if err := s.enqueuer.EnqueueDeduction(ctx, input); err != nil {
		s.logger.Error("enqueue deduction for order",
			slog.String("order_id", order.ID),
			slog.String("restaurant_id", order.RestaurantID),
			slog.Any("error", err))
	}
}

// Get loads one order scoped to its restaurant.
func (s *Service) Get(ctx context.Context, id, restaurantID string) (*Order, error) {
	if restaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	return s.repo.FindByID(ctx, id, restaurantID)
}

// List returns the restaurant's orders, newest first.
func (s *Service) List(ctx context.Context, restaurantID string) ([]Order, error) {
	if restaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	return s.repo.FindByRestaurant(ctx, restaurantID)
}

// UpdateStatus moves an order between lifecycle states.
func (s *Service) UpdateStatus(ctx context.Context, id, restaurantID string, status Status) error {
	switch status {
	case StatusPlaced, StatusCompleted, StatusCancelled:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if restaurantID == "" {
		return ErrRestaurantRequired
	}
	return s.repo.UpdateStatus(ctx, id, restaurantID, status)
}
