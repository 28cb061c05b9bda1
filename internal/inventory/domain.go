package inventory

import (
	"errors"
	"time"

	"github.com/brigade-pos/brigade/internal/units"
)

// Item is the per-restaurant stock ledger for one ingredient. Aggregate
// totals always equal the derivation over Batches; the deduction and waste
// paths are the only writers.
type Item struct {
	ID                     string
	RestaurantID           string
	Name                   string
	Unit                   units.Unit
	Batches                []SupplierBatch
	TotalQuantity          float64
	TotalUsedQuantity      float64
	TotalRemainingQuantity float64
	TotalAmount            float64
	IsDeleted              bool
	DeletedAt              *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// SupplierBatch is one purchase lot. Batches are kept in purchase order and
// consumed oldest-first by waste write-off; Position breaks ties between
// batches sharing a purchase timestamp.
type SupplierBatch struct {
	ID                string
	Position          int
	SupplierID        string
	PurchasedQuantity float64
	RemainingQuantity float64
	UsedQuantity      float64
	PricePerUnit      float64
	TotalAmount       float64
	PurchasedAt       time.Time
	IsFullyUsed       bool
}

// SoldItem is one transaction line fed into the deduction engine.
type SoldItem struct {
	ItemID   string
	ItemName string
	Quantity int
	Size     string
	Price    float64
}

// DeductionInput carries a recorded sale into the engine. SourceID and
// SourceType identify the originating transaction for traceability and
// idempotency.
type DeductionInput struct {
	RestaurantID string
	SourceID     string
	SourceType   string
	Items        []SoldItem
}

// DeductedItem reports one successful ingredient decrement.
type DeductedItem struct {
	StockID          string
	StockName        string
	Quantity         float64
	Unit             units.Unit
	RemainingStock   float64
	OriginalQuantity float64
	OriginalUnit     units.Unit
}

// DeductionResult collects per-line outcomes. Warnings never flip Success;
// only unexpected per-item processing failures do.
type DeductionResult struct {
	Success       bool
	DeductedItems []DeductedItem
	Warnings      []string
	Errors        []string
}

// AvailabilityInput is the read-only pre-flight variant of DeductionInput.
type AvailabilityInput struct {
	RestaurantID string
	Items        []SoldItem
}

// UnavailableItem describes one shortfall found by the availability check.
type UnavailableItem struct {
	ItemName         string
	StockID          string
	StockName        string
	Needed           float64
	Available        float64
	Shortfall        float64
	Unit             units.Unit
	OriginalQuantity float64
	OriginalUnit     units.Unit
}

// AvailabilityResult reports shortfalls without mutating any stock.
type AvailabilityResult struct {
	Available        bool
	UnavailableItems []UnavailableItem
	Warnings         []string
}

// WasteInput requests a write-off consumed oldest batch first.
type WasteInput struct {
	RestaurantID string
	StockID      string
	Quantity     float64
	Reason       string
}

// WasteResult reports the FIFO walk outcome.
type WasteResult struct {
	StockID        string
	WrittenOff     float64
	RemainingStock float64
	BatchesTouched int
}

// ReceiptInput records a supplier purchase. The first receipt for an
// ingredient creates its ledger.
type ReceiptInput struct {
	RestaurantID string
	StockID      string
	Name         string
	Unit         units.Unit
	SupplierID   string
	Quantity     float64
	PricePerUnit float64
	PurchasedAt  time.Time
}

var (
	// ErrItemNotFound indicates no live ledger for the stock id in the restaurant.
	ErrItemNotFound = errors.New("inventory: item not found")
	// ErrWrongRestaurant indicates the stock id exists under another restaurant.
	ErrWrongRestaurant = errors.New("inventory: item belongs to a different restaurant")
	// ErrInsufficientStock indicates remaining quantity below the converted need.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates a non-positive quantity input.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrRestaurantRequired indicates a missing tenant scope.
	ErrRestaurantRequired = errors.New("inventory: restaurant id required")
)

// LegacyRecord mirrors the loosely-typed shape of imported stock documents
// where the remaining quantity may live under several field names.
type LegacyRecord struct {
	Stock              *LegacyStock
	Quantity           *float64
	SupplierQuantities []float64
}

// LegacyStock is the nested quantity block of a legacy document.
type LegacyStock struct {
	Quantity      *float64
	TotalQuantity *float64
}

// LegacyImportInput brings one external stock document into a ledger. The
// remaining quantity is resolved from the record via NormalizeQuantity.
type LegacyImportInput struct {
	RestaurantID string
	StockID      string
	Name         string
	Unit         units.Unit
	Record       LegacyRecord
}

// NormalizeQuantity resolves the remaining quantity of a legacy record,
// trying stock.quantity, stock.totalQuantity, the flat quantity field and
// finally the supplier sum. The second return is false when nothing resolves.
func NormalizeQuantity(rec LegacyRecord) (float64, bool) {
	if rec.Stock != nil {
		if rec.Stock.Quantity != nil {
			return *rec.Stock.Quantity, true
		}
		if rec.Stock.TotalQuantity != nil {
			return *rec.Stock.TotalQuantity, true
		}
	}
	if rec.Quantity != nil {
		return *rec.Quantity, true
	}
	if len(rec.SupplierQuantities) > 0 {
		var sum float64
		for _, q := range rec.SupplierQuantities {
			sum = units.Add(sum, q)
		}
		return sum, true
	}
	return 0, false
}
