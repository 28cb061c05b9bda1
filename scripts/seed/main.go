// Command seed loads a small demo dataset: one restaurant with stocked
// ingredients, two mapped menu items and a table pool.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brigade-pos/brigade/internal/app"
	"github.com/brigade-pos/brigade/internal/inventory"
	"github.com/brigade-pos/brigade/internal/menu"
	"github.com/brigade-pos/brigade/internal/shared"
	"github.com/brigade-pos/brigade/internal/units"
)

const restaurantID = "demo-restaurant"

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	menuRepo := menu.NewRepository(pool)
	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, menuRepo, shared.NewIdempotencyStore(pool))

	stocks := []inventory.ReceiptInput{
		{RestaurantID: restaurantID, StockID: "stock-flour", Name: "Flour", Unit: units.UnitKilogram, SupplierID: "sup-1", Quantity: 25, PricePerUnit: 40},
		{RestaurantID: restaurantID, StockID: "stock-paneer", Name: "Paneer", Unit: units.UnitKilogram, SupplierID: "sup-1", Quantity: 8, PricePerUnit: 320},
		{RestaurantID: restaurantID, StockID: "stock-milk", Name: "Milk", Unit: units.UnitLitre, SupplierID: "sup-2", Quantity: 30, PricePerUnit: 55},
	}
	for _, receipt := range stocks {
		receipt.PurchasedAt = time.Now().UTC()
		if _, err := inventoryService.ReceiveStock(ctx, receipt); err != nil {
			logger.Error("seed stock", slog.String("stock", receipt.Name), slog.Any("error", err))
			os.Exit(1)
		}
	}

	recipes := []menu.Recipe{
		{
			ItemID: "item-paneer-tikka", RestaurantID: restaurantID, ItemName: "Paneer Tikka",
			StockLines: []menu.StockLine{
				{StockID: "stock-paneer", Quantity: 200, Unit: units.UnitGram, Size: "full"},
				{StockID: "stock-paneer", Quantity: 100, Unit: units.UnitGram, Size: "half"},
			},
		},
		{
			ItemID: "item-lassi", RestaurantID: restaurantID, ItemName: "Lassi",
			StockLines: []menu.StockLine{
				{StockID: "stock-milk", Quantity: 250, Unit: units.UnitMillilitre},
			},
		},
	}
	for _, recipe := range recipes {
		if err := menuRepo.UpsertRecipe(ctx, recipe); err != nil {
			logger.Error("seed recipe", slog.String("item", recipe.ItemName), slog.Any("error", err))
			os.Exit(1)
		}
	}

	for i, table := range []string{"T1", "T2", "T3", "T4", "T5", "T6"} {
		_, err := pool.Exec(ctx, `
			INSERT INTO restaurant_tables (restaurant_id, table_number, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (restaurant_id, table_number) DO NOTHING
		`, restaurantID, table, i)
		if err != nil {
			logger.Error("seed table", slog.String("table", table), slog.Any("error", err))
			os.Exit(1)
		}
	}

	logger.Info("seed completed", slog.String("restaurant_id", restaurantID))
}
