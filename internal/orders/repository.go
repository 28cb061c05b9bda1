package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, restaurant_id, status, total, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.RestaurantID, &o.Status, &o.Total, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindByID loads one order with its lines.
func (r *Repository) FindByID(ctx context.Context, id, restaurantID string) (*Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND restaurant_id = $2`,
		id, restaurantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) loadLines(ctx context.Context, order *Order) error {
	rows, err := r.pool.Query(ctx, `
		SELECT item_id, item_name, quantity, size, price
		FROM order_lines WHERE order_id = $1 ORDER BY position
	`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ItemID, &line.ItemName, &line.Quantity,
			&line.Size, &line.Price); err != nil {
			return err
		}
		order.Lines = append(order.Lines, line)
	}
	return rows.Err()
}

// FindByRestaurant lists orders newest first. Lines are loaded per order;
// listings here are small enough that the N+1 does not matter yet.
func (r *Repository) FindByRestaurant(ctx context.Context, restaurantID string) ([]Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE restaurant_id = $1 ORDER BY created_at DESC`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := r.loadLines(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateStatus moves an order between lifecycle states.
func (r *Repository) UpdateStatus(ctx context.Context, id, restaurantID string, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND restaurant_id = $2
	`, id, restaurantID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn in a repeatable-read transaction so an order and its lines
// land atomically.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
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

func (t *txRepo) InsertOrder(ctx context.Context, order *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, restaurant_id, status, total, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, order.ID, order.RestaurantID, order.Status, order.Total, order.Notes,
		order.CreatedAt, order.UpdatedAt)
	return err
}

func (t *txRepo) InsertLine(ctx context.Context, orderID string, position int, line Line) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO order_lines (order_id, position, item_id, item_name, quantity, size, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, orderID, position, line.ItemID, line.ItemName, line.Quantity, line.Size, line.Price)
	return err
}
