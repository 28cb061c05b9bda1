package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brigade-pos/brigade/internal/menu"
	"github.com/brigade-pos/brigade/internal/shared"
	"github.com/brigade-pos/brigade/internal/units"
)

// RecipeSource resolves the ingredient mapping of a sold menu item.
type RecipeSource interface {
	FindRecipeByItemID(ctx context.Context, itemID string) (*menu.Recipe, error)
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	FindByID(ctx context.Context, stockID, restaurantID string) (*Item, error)
	FindAll(ctx context.Context, restaurantID string) ([]Item, error)
	DistinctRestaurantIDs(ctx context.Context) ([]string, error)
	// DeductIfAvailable decrements remaining and increments used in one
	// conditional statement, failing with ErrInsufficientStock instead of
	// going negative under concurrent sales.
	DeductIfAvailable(ctx context.Context, stockID, restaurantID string, qty float64) (float64, error)
	SoftDelete(ctx context.Context, stockID, restaurantID string) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the transactional operations used by waste write-off
// and stock receipt.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, stockID, restaurantID string) (*Item, error)
	UpdateBatch(ctx context.Context, batch SupplierBatch) error
	UpdateAggregates(ctx context.Context, item *Item) error
	InsertItem(ctx context.Context, item *Item) error
	InsertBatch(ctx context.Context, stockID string, batch SupplierBatch) error
}

// IdempotencyGuard dedupes deduction sources. Delete releases a key whose
// processing failed so a redelivered task can retry.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates stock deduction, availability checks, waste write-off
// and receipts for one document-per-ingredient ledger.
type Service struct {
	repo        RepositoryPort
	recipes     RecipeSource
	idempotency IdempotencyGuard
}

// NewService builds Service. The idempotency guard may be nil in tests.
func NewService(repo RepositoryPort, recipes RecipeSource, idem IdempotencyGuard) *Service {
	return &Service{repo: repo, recipes: recipes, idempotency: idem}
}

// Deduct decrements stock for a recorded sale. The engine is advisory and
// best-effort: missing recipes, unmapped sizes, unknown stock and shortfalls
// are warnings, the sale itself is never blocked. Success only reports false
// when an unexpected per-item failure occurred.
func (s *Service) Deduct(ctx context.Context, input DeductionInput) (DeductionResult, error) {
	result := DeductionResult{Success: true}
	if input.RestaurantID == "" {
		return DeductionResult{}, ErrRestaurantRequired
	}
	if len(input.Items) == 0 {
		return result, nil
	}

	var insertedKey string
	if s.idempotency != nil && input.SourceID != "" {
		key := fmt.Sprintf("%s:%s:%s", input.SourceType, input.SourceID, input.RestaurantID)
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("deduction for %s %s already processed, skipping", input.SourceType, input.SourceID))
				return result, nil
			}
			return DeductionResult{}, err
		}
		insertedKey = key
	}

	for _, sold := range input.Items {
		s.deductItem(ctx, input.RestaurantID, sold, &result)
	}
	result.Success = len(result.Errors) == 0
	// Release the key on failure so the worker's retry is not treated as a
	// replay.
	if !result.Success && insertedKey != "" {
		_ = s.idempotency.Delete(ctx, insertedKey)
	}
	return result, nil
}

func (s *Service) deductItem(ctx context.Context, restaurantID string, sold SoldItem, result *DeductionResult) {
	lines, ok := s.resolveLines(ctx, sold, &result.Warnings, &result.Errors)
	if !ok {
		return
	}
	for _, line := range lines {
		needed := units.Mul(line.Quantity, sold.Quantity)
		item, ok := s.resolveStock(ctx, line.StockID, restaurantID, sold.ItemName, &result.Warnings, &result.Errors)
		if !ok {
			continue
		}
		if !units.Compatible(line.Unit, item.Unit) {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%s: cannot convert %s to %s for stock %q", sold.ItemName, line.Unit, item.Unit, item.Name))
			continue
		}
		converted := units.Convert(needed, line.Unit, item.Unit)
		remaining, err := s.repo.DeductIfAvailable(ctx, item.ID, restaurantID, converted)
		if err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"%s: insufficient stock for %q, available %.2f %s, needed %.2f %s",
					sold.ItemName, item.Name, item.TotalRemainingQuantity, item.Unit, converted, item.Unit))
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: deduct %q: %v", sold.ItemName, item.Name, err))
			continue
		}
		result.DeductedItems = append(result.DeductedItems, DeductedItem{
			StockID:          item.ID,
			StockName:        item.Name,
			Quantity:         converted,
			Unit:             item.Unit,
			RemainingStock:   remaining,
			OriginalQuantity: needed,
			OriginalUnit:     line.Unit,
		})
	}
}

// CheckAvailability mirrors Deduct without mutating anything, reporting one
// shortfall entry per ingredient line that cannot be covered.
func (s *Service) CheckAvailability(ctx context.Context, input AvailabilityInput) (AvailabilityResult, error) {
	if input.RestaurantID == "" {
		return AvailabilityResult{}, ErrRestaurantRequired
	}
	result := AvailabilityResult{Available: true}
	var discard []string
	for _, sold := range input.Items {
		lines, ok := s.resolveLines(ctx, sold, &result.Warnings, &discard)
		if !ok {
			continue
		}
		for _, line := range lines {
			needed := units.Mul(line.Quantity, sold.Quantity)
			item, ok := s.resolveStock(ctx, line.StockID, input.RestaurantID, sold.ItemName, &result.Warnings, &discard)
			if !ok {
				continue
			}
			if !units.Compatible(line.Unit, item.Unit) {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"%s: cannot convert %s to %s for stock %q", sold.ItemName, line.Unit, item.Unit, item.Name))
				continue
			}
			converted := units.Convert(needed, line.Unit, item.Unit)
			if converted > item.TotalRemainingQuantity {
				result.UnavailableItems = append(result.UnavailableItems, UnavailableItem{
					ItemName:         sold.ItemName,
					StockID:          item.ID,
					StockName:        item.Name,
					Needed:           converted,
					Available:        item.TotalRemainingQuantity,
					Shortfall:        units.Sub(converted, item.TotalRemainingQuantity),
					Unit:             item.Unit,
					OriginalQuantity: needed,
					OriginalUnit:     line.Unit,
				})
			}
		}
	}
	result.Available = len(result.UnavailableItems) == 0
	return result, nil
}

// resolveLines loads the recipe and filters it down to the sold size.
// A false return means the item contributes no deductible lines.
func (s *Service) resolveLines(ctx context.Context, sold SoldItem, warnings, errs *[]string) ([]menu.StockLine, bool) {
	recipe, err := s.recipes.FindRecipeByItemID(ctx, sold.ItemID)
	if err != nil {
		if errors.Is(err, menu.ErrRecipeNotFound) {
			*warnings = append(*warnings, fmt.Sprintf("no recipe mapped for %q, skipping deduction", sold.ItemName))
			return nil, false
		}
		*errs = append(*errs, fmt.Sprintf("%s: load recipe: %v", sold.ItemName, err))
		return nil, false
	}
	if len(recipe.StockLines) == 0 {
		return nil, false
	}
	lines := recipe.LinesForSize(sold.Size)
	if len(lines) == 0 {
		*warnings = append(*warnings, fmt.Sprintf("no recipe lines for %q size %q, skipping deduction", sold.ItemName, sold.Size))
		return nil, false
	}
	return lines, true
}

func (s *Service) resolveStock(ctx context.Context, stockID, restaurantID, itemName string, warnings, errs *[]string) (*Item, bool) {
	item, err := s.repo.FindByID(ctx, stockID, restaurantID)
	if err != nil {
		switch {
		case errors.Is(err, ErrWrongRestaurant):
			*warnings = append(*warnings, fmt.Sprintf("%s: stock %s belongs to a different restaurant", itemName, stockID))
		case errors.Is(err, ErrItemNotFound):
			*warnings = append(*warnings, fmt.Sprintf("%s: stock %s not found", itemName, stockID))
		default:
			*errs = append(*errs, fmt.Sprintf("%s: load stock %s: %v", itemName, stockID, err))
		}
		return nil, false
	}
	return item, true
}

// WriteOffWaste drains the waste quantity from supplier batches oldest-first,
// marking each batch fully used as it hits zero, then refreshes the
// aggregates, all inside one transaction.
func (s *Service) WriteOffWaste(ctx context.Context, input WasteInput) (WasteResult, error) {
	if input.RestaurantID == "" {
		return WasteResult{}, ErrRestaurantRequired
	}
	if input.Quantity <= 0 {
		return WasteResult{}, ErrInvalidQuantity
	}
	var result WasteResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.StockID, input.RestaurantID)
		if err != nil {
			return err
		}
		if input.Quantity > item.TotalRemainingQuantity {
			return fmt.Errorf("%w: remaining %.2f %s, waste %.2f %s",
				ErrInsufficientStock, item.TotalRemainingQuantity, item.Unit, input.Quantity, item.Unit)
		}
		left := units.Round2(input.Quantity)
		for i := range item.Batches {
			if left <= 0 {
				break
			}
			batch := &item.Batches[i]
			if batch.IsFullyUsed || batch.RemainingQuantity <= 0 {
				continue
			}
			take := batch.RemainingQuantity
			if take > left {
				take = left
			}
			batch.RemainingQuantity = units.Sub(batch.RemainingQuantity, take)
			batch.UsedQuantity = units.Add(batch.UsedQuantity, take)
			if batch.RemainingQuantity <= 0 {
				batch.RemainingQuantity = 0
				batch.IsFullyUsed = true
			}
			if err := tx.UpdateBatch(ctx, *batch); err != nil {
				return err
			}
			left = units.Sub(left, take)
			result.BatchesTouched++
		}
		item.TotalRemainingQuantity = units.Sub(item.TotalRemainingQuantity, input.Quantity)
		item.TotalUsedQuantity = units.Add(item.TotalUsedQuantity, input.Quantity)
		if err := tx.UpdateAggregates(ctx, item); err != nil {
			return err
		}
		result.StockID = item.ID
		result.WrittenOff = units.Round2(input.Quantity)
		result.RemainingStock = item.TotalRemainingQuantity
		return nil
	})
	if err != nil {
		return WasteResult{}, err
	}
	return result, nil
}

// ReceiveStock appends a supplier batch, creating the ledger on first
// receipt.
func (s *Service) ReceiveStock(ctx context.Context, input ReceiptInput) (*Item, error) {
	if input.RestaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if input.PurchasedAt.IsZero() {
		input.PurchasedAt = time.Now().UTC()
	}
	batch := SupplierBatch{
		ID:                uuid.NewString(),
		SupplierID:        input.SupplierID,
		PurchasedQuantity: units.Round2(input.Quantity),
		RemainingQuantity: units.Round2(input.Quantity),
		PricePerUnit:      input.PricePerUnit,
		TotalAmount:       units.Round2(input.Quantity * input.PricePerUnit),
		PurchasedAt:       input.PurchasedAt,
	}
	var out *Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.StockID, input.RestaurantID)
		if err != nil {
			if !errors.Is(err, ErrItemNotFound) {
				return err
			}
			now := time.Now().UTC()
			item = &Item{
				ID:           input.StockID,
				RestaurantID: input.RestaurantID,
				Name:         input.Name,
				Unit:         input.Unit,
				CreatedAt:    now,
			}
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			if err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		batch.Position = len(item.Batches)
		if err := tx.InsertBatch(ctx, item.ID, batch); err != nil {
			return err
		}
		item.Batches = append(item.Batches, batch)
		item.TotalQuantity = units.Add(item.TotalQuantity, batch.PurchasedQuantity)
		item.TotalRemainingQuantity = units.Add(item.TotalRemainingQuantity, batch.PurchasedQuantity)
		item.TotalAmount = units.Add(item.TotalAmount, batch.TotalAmount)
		if err := tx.UpdateAggregates(ctx, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ImportLegacy ingests one externally sourced stock document, resolving its
// heterogeneous quantity fields through NormalizeQuantity and recording the
// result as a single opening batch.
func (s *Service) ImportLegacy(ctx context.Context, input LegacyImportInput) (*Item, error) {
	qty, ok := NormalizeQuantity(input.Record)
	if !ok || qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	return s.ReceiveStock(ctx, ReceiptInput{
		RestaurantID: input.RestaurantID,
		StockID:      input.StockID,
		Name:         input.Name,
		Unit:         input.Unit,
		SupplierID:   "legacy-import",
		Quantity:     qty,
	})
}

// List returns the live ledgers of a restaurant.
func (s *Service) List(ctx context.Context, restaurantID string) ([]Item, error) {
	if restaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	return s.repo.FindAll(ctx, restaurantID)
}

// Get loads a single ledger scoped to its restaurant.
func (s *Service) Get(ctx context.Context, stockID, restaurantID string) (*Item, error) {
	if restaurantID == "" {
		return nil, ErrRestaurantRequired
	}
	return s.repo.FindByID(ctx, stockID, restaurantID)
}

// SoftDelete hides a ledger from deduction, availability and low-stock scans
// while keeping it for historical transactions.
func (s *Service) SoftDelete(ctx context.Context, stockID, restaurantID string) error {
	if restaurantID == "" {
		return ErrRestaurantRequired
	}
	return s.repo.SoftDelete(ctx, stockID, restaurantID)
}
