package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists inventory ledgers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, restaurant_id, name, unit, total_quantity, total_used_quantity,
	total_remaining_quantity, total_amount, is_deleted, deleted_at, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	err := row.Scan(
		&item.ID, &item.RestaurantID, &item.Name, &item.Unit,
		&item.TotalQuantity, &item.TotalUsedQuantity, &item.TotalRemainingQuantity,
		&item.TotalAmount, &item.IsDeleted, &item.DeletedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByID loads a live ledger scoped to a restaurant. A ledger existing
// under another restaurant surfaces as ErrWrongRestaurant so the deduction
// engine can warn precisely.
func (r *Repository) FindByID(ctx context.Context, stockID, restaurantID string) (*Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, stockID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.RestaurantID != restaurantID {
		return nil, ErrWrongRestaurant
	}
	if item.IsDeleted {
		return nil, ErrItemNotFound
	}
	batches, err := r.loadBatches(ctx, r.pool, item.ID)
	if err != nil {
		return nil, err
	}
	item.Batches = batches
	return item, nil
}

// FindAll lists live ledgers of a restaurant with their batches.
func (r *Repository) FindAll(ctx context.Context, restaurantID string) ([]Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM inventory_items
		 WHERE restaurant_id = $1 AND NOT is_deleted
		 ORDER BY name`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range items {
		batches, err := r.loadBatches(ctx, r.pool, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Batches = batches
	}
	return items, nil
}

// DistinctRestaurantIDs lists every restaurant that holds live inventory.
func (r *Repository) DistinctRestaurantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT restaurant_id FROM inventory_items WHERE NOT is_deleted ORDER BY restaurant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeductIfAvailable applies the sale decrement as a single conditional
// statement so concurrent sales can never push remaining below zero.
func (r *Repository) DeductIfAvailable(ctx context.Context, stockID, restaurantID string, qty float64) (float64, error) {
	var remaining float64
	err := r.pool.QueryRow(ctx, `
		UPDATE inventory_items
		SET total_remaining_quantity = round((total_remaining_quantity - $3)::numeric, 2),
		    total_used_quantity = round((total_used_quantity + $3)::numeric, 2),
		    updated_at = $4
		WHERE id = $1 AND restaurant_id = $2 AND NOT is_deleted
		  AND total_remaining_quantity >= $3
		RETURNING total_remaining_quantity
	`, stockID, restaurantID, qty, time.Now().UTC()).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientStock
		}
		return 0, err
	}
	return remaining, nil
}

// SoftDelete hides a ledger without removing its purchase history.
func (r *Repository) SoftDelete(ctx context.Context, stockID, restaurantID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE inventory_items
		SET is_deleted = TRUE, deleted_at = $3, updated_at = $3
		WHERE id = $1 AND restaurant_id = $2 AND NOT is_deleted
	`, stockID, restaurantID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

type batchQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) loadBatches(ctx context.Context, q batchQuerier, stockID string) ([]SupplierBatch, error) {
	rows, err := q.Query(ctx, `
		SELECT id, position, supplier_id, purchased_quantity, remaining_quantity, used_quantity,
		       price_per_unit, total_amount, purchased_at, is_fully_used
		FROM supplier_batches
		WHERE stock_id = $1
		ORDER BY purchased_at, position
	`, stockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []SupplierBatch
	for rows.Next() {
		var b SupplierBatch
		if err := rows.Scan(&b.ID, &b.Position, &b.SupplierID, &b.PurchasedQuantity, &b.RemainingQuantity,
			&b.UsedQuantity, &b.PricePerUnit, &b.TotalAmount, &b.PurchasedAt, &b.IsFullyUsed); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

type txRepo struct {
	repo *Repository
	tx   pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepo{repo: r, tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (t *txRepo) GetItemForUpdate(ctx context.Context, stockID, restaurantID string) (*Item, error) {
	item, err := scanItem(t.tx.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM inventory_items
		 WHERE id = $1 AND restaurant_id = $2 AND NOT is_deleted
		 FOR UPDATE`, stockID, restaurantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	batches, err := t.repo.loadBatches(ctx, t.tx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Batches = batches
	return item, nil
}

func (t *txRepo) UpdateBatch(ctx context.Context, batch SupplierBatch) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE supplier_batches
		SET remaining_quantity = $2, used_quantity = $3, is_fully_used = $4
		WHERE id = $1
	`, batch.ID, batch.RemainingQuantity, batch.UsedQuantity, batch.IsFullyUsed)
	return err
}

func (t *txRepo) UpdateAggregates(ctx context.Context, item *Item) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE inventory_items
		SET total_quantity = $2, total_used_quantity = $3,
		    total_remaining_quantity = $4, total_amount = $5, updated_at = $6
		WHERE id = $1
	`, item.ID, item.TotalQuantity, item.TotalUsedQuantity,
		item.TotalRemainingQuantity, item.TotalAmount, time.Now().UTC())
	return err
}

func (t *txRepo) InsertItem(ctx context.Context, item *Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_items (id, restaurant_id, name, unit, total_quantity,
			total_used_quantity, total_remaining_quantity, total_amount,
			is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, 0, FALSE, $5, $5)
	`, item.ID, item.RestaurantID, item.Name, string(item.Unit), item.CreatedAt)
	return err
}

func (t *txRepo) InsertBatch(ctx context.Context, stockID string, batch SupplierBatch) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO supplier_batches (id, stock_id, position, supplier_id, purchased_quantity,
			remaining_quantity, used_quantity, price_per_unit, total_amount,
			purchased_at, is_fully_used)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, FALSE)
	`, batch.ID, stockID, batch.Position, batch.SupplierID, batch.PurchasedQuantity,
		batch.RemainingQuantity, batch.PricePerUnit, batch.TotalAmount, batch.PurchasedAt)
	return err
}
