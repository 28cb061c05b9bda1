package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for reservations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reservationColumns = `id, restaurant_id, customer_id, customer_name, start_time, end_time,
	table_number, advance, payment, notes, created_at, updated_at`

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	err := row.Scan(
		&res.ID, &res.RestaurantID, &res.CustomerID, &res.CustomerName,
		&res.StartTime, &res.EndTime, &res.TableNumber,
		&res.Advance, &res.Payment, &res.Notes, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// TablePool loads the configured table list of a restaurant in its stored
// order. An empty result means the caller should fall back to the synthetic
// default pool.
func (r *Repository) TablePool(ctx context.Context, restaurantID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT table_number FROM restaurant_tables
		WHERE restaurant_id = $1
		ORDER BY position
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

// Get loads one reservation scoped to its restaurant.
func (r *Repository) Get(ctx context.Context, id, restaurantID string) (*Reservation, error) {
	res, err := scanReservation(r.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 AND restaurant_id = $2`,
		id, restaurantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// FindByRestaurant lists bookings ordered by start time.
func (r *Repository) FindByRestaurant(ctx context.Context, restaurantID string) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE restaurant_id = $1 ORDER BY start_time`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reservations []Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

// Delete removes a booking permanently.
func (r *Repository) Delete(ctx context.Context, id, restaurantID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM reservations WHERE id = $1 AND restaurant_id = $2`, id, restaurantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

const allocationRetries = 3

// WithTx wraps the allocation check-then-act in a serializable transaction.
// FOR UPDATE alone cannot stop two bookings racing into a free window (there
// are no rows to lock yet), so serialization failures are expected under
// contention; the loser aborts with SQLSTATE 40001 and the allocation is
// retried against the fresh booked set.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var err error
	for attempt := 0; attempt < allocationRetries; attempt++ {
		err = r.runTx(ctx, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (r *Repository) runTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	wrapper := &txRepo{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// FindOverlapping returns bookings whose [start_time, end_time) intersects
// the requested window. Rows are locked so the booked set holds until
// commit.
func (t *txRepo) FindOverlapping(ctx context.Context, restaurantID string, start, end time.Time) ([]Reservation, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE restaurant_id = $1 AND start_time < $3 AND end_time > $2
		 ORDER BY start_time
		 FOR UPDATE`, restaurantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reservations []Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

func (t *txRepo) Insert(ctx context.Context, res *Reservation) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO reservations (id, restaurant_id, customer_id, customer_name,
			start_time, end_time, table_number, advance, payment, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, res.ID, res.RestaurantID, res.CustomerID, res.CustomerName,
		res.StartTime, res.EndTime, res.TableNumber, res.Advance, res.Payment,
		res.Notes, res.CreatedAt, res.UpdatedAt)
	return err
}

func (t *txRepo) Update(ctx context.Context, res *Reservation) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE reservations
		SET customer_name = $3, start_time = $4, end_time = $5, table_number = $6,
		    advance = $7, payment = $8, notes = $9, updated_at = $10
		WHERE id = $1 AND restaurant_id = $2
	`, res.ID, res.RestaurantID, res.CustomerName, res.StartTime, res.EndTime,
		res.TableNumber, res.Advance, res.Payment, res.Notes, res.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
