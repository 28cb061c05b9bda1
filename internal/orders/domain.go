// Package orders records point-of-sale transactions and hands them to the
// inventory deduction pipeline after commit.
package orders

import (
	"errors"
	"time"

	"github.com/brigade-pos/brigade/internal/units"
)

// Order is one recorded sale.
type Order struct {
	ID           string
	RestaurantID string
	Status       Status
	Lines        []Line
	Total        float64
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Line is one sold menu item on an order.
type Line struct {
	ItemID   string
	ItemName string
	Quantity int
	Size     string
	Price    float64
}

// Status tracks the lifecycle of an order.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// CreateInput carries a new sale into the service.
type CreateInput struct {
	RestaurantID string
	Lines        []Line
	Notes        string
}

var (
	// ErrOrderNotFound indicates no order with the id in the restaurant.
	ErrOrderNotFound = errors.New("orders: order not found")
	// ErrRestaurantRequired indicates a missing tenant scope.
	ErrRestaurantRequired = errors.New("orders: restaurant id required")
	// ErrInvalidLine indicates a line with a non-positive quantity or no item id.
	ErrInvalidLine = errors.New("orders: invalid order line")
	// ErrInvalidStatus indicates an unknown status transition target.
	ErrInvalidStatus = errors.New("orders: invalid status")
)

// LineTotal computes the line amount at two-decimal precision.
func (l Line) LineTotal() float64 {
	return units.Round2(units.Mul(l.Price, l.Quantity))
}
