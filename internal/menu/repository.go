package menu

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for menu recipes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindRecipeByItemID loads a recipe with its stock lines. Returns
// ErrRecipeNotFound when the menu item has no mapping.
func (r *Repository) FindRecipeByItemID(ctx context.Context, itemID string) (*Recipe, error) {
	const head = `
		SELECT item_id, restaurant_id, item_name, updated_at
		FROM menu_recipes
		WHERE item_id = $1
	`
	var recipe Recipe
	err := r.pool.QueryRow(ctx, head, itemID).Scan(
		&recipe.ItemID, &recipe.RestaurantID, &recipe.ItemName, &recipe.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	const lines = `
		SELECT stock_id, quantity, unit, size
		FROM menu_recipe_lines
		WHERE item_id = $1
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, lines, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line StockLine
		if err := rows.Scan(&line.StockID, &line.Quantity, &line.Unit, &line.Size); err != nil {
			return nil, err
		}
		recipe.StockLines = append(recipe.StockLines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// UpsertRecipe replaces the recipe header and its lines atomically.
func (r *Repository) UpsertRecipe(ctx context.Context, recipe Recipe) error {
	if err := recipe.Validate(); err != nil {
		return err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO menu_recipes (item_id, restaurant_id, item_name, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id) DO UPDATE
		SET restaurant_id = EXCLUDED.restaurant_id,
		    item_name = EXCLUDED.item_name,
		    updated_at = EXCLUDED.updated_at
	`, recipe.ItemID, recipe.RestaurantID, recipe.ItemName, time.Now().UTC())
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM menu_recipe_lines WHERE item_id = $1`, recipe.ItemID); err != nil {
		return err
	}
	for i, line := range recipe.StockLines {
		_, err := tx.Exec(ctx, `
			INSERT INTO menu_recipe_lines (item_id, position, stock_id, quantity, unit, size)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, recipe.ItemID, i, line.StockID, line.Quantity, string(line.Unit), line.Size)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
