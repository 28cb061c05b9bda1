// Package reservation allocates restaurant tables over half-open time
// windows: a booking occupies [start, end), so back-to-back reservations on
// the same table never conflict.
package reservation

import (
	"errors"
	"fmt"
	"time"
)

// Reservation is one confirmed table booking.
type Reservation struct {
	ID           string
	RestaurantID string
	CustomerID   string
	CustomerName string
	StartTime    time.Time
	EndTime      time.Time
	TableNumber  string
	Advance      float64
	Payment      float64
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput is a booking request. TableNumber is optional; when empty the
// allocator assigns the first free table in pool order.
type CreateInput struct {
	RestaurantID string
	CustomerID   string
	CustomerName string
	StartTime    time.Time
	EndTime      time.Time
	TableNumber  string
	Advance      float64
	Payment      float64
	Notes        string
}

// UpdateInput mutates an existing booking; zero times keep the stored window.
type UpdateInput struct {
	ID           string
	RestaurantID string
	CustomerName string
	StartTime    time.Time
	EndTime      time.Time
	TableNumber  string
	Advance      float64
	Payment      float64
	Notes        string
}

// defaultPoolSize is the synthetic table count for restaurants without a
// configured table list.
const defaultPoolSize = 20

// DefaultTablePool returns the synthetic pool T1..T20.
func DefaultTablePool() []string {
	pool := make([]string, 0, defaultPoolSize)
	for i := 1; i <= defaultPoolSize; i++ {
		pool = append(pool, fmt.Sprintf("T%d", i))
	}
	return pool
}

// Overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

var (
	// ErrInvalidWindow indicates start is not strictly before end.
	ErrInvalidWindow = errors.New("reservation: start time must be before end time")
	// ErrInvalidTable indicates a requested table outside the pool.
	ErrInvalidTable = errors.New("reservation: table not in restaurant pool")
	// ErrTableBooked indicates the requested table overlaps an existing booking.
	ErrTableBooked = errors.New("reservation: table already booked for this window")
	// ErrNoAvailability indicates every pool table is booked for the window.
	ErrNoAvailability = errors.New("reservation: no tables available for this window")
	// ErrNotFound indicates an unknown reservation id.
	ErrNotFound = errors.New("reservation: not found")
	// ErrRestaurantRequired indicates a missing tenant scope.
	ErrRestaurantRequired = errors.New("reservation: restaurant id required")
)

// ConflictError decorates a rejection with the booked and available table
// sets so callers can offer alternatives.
type ConflictError struct {
	Reason    error
	Booked    []string
	Available []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v (booked: %v, available: %v)", e.Reason, e.Booked, e.Available)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *ConflictError) Unwrap() error { return e.Reason }
