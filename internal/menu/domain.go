// Package menu holds menu recipes: the mapping from a sold menu item to the
// ingredient quantities it consumes.
package menu

import (
	"errors"
	"time"

	"github.com/brigade-pos/brigade/internal/units"
)

// StockLine ties one ingredient to a menu item. Size-tagged lines apply only
// when the sold item's size matches; untagged lines apply to every size.
type StockLine struct {
	StockID  string
	Quantity float64
	Unit     units.Unit
	Size     string
}

// Recipe lists the stock lines consumed per unit sold of a menu item.
type Recipe struct {
	ItemID       string
	RestaurantID string
	ItemName     string
	StockLines   []StockLine
	UpdatedAt    time.Time
}

// LinesForSize selects the lines applicable to a sold size. An empty size
// keeps every line. A non-empty size keeps exact matches; when no line carries
// that size the untagged lines apply instead. Only when neither exists is the
// result empty and the caller treats the sale as unmapped.
func (r Recipe) LinesForSize(size string) []StockLine {
	if size == "" {
		return r.StockLines
	}
	var matched, untagged []StockLine
	for _, line := range r.StockLines {
		switch line.Size {
		case size:
			matched = append(matched, line)
		case "":
			untagged = append(untagged, line)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	return untagged
}

// Validate rejects malformed recipes before persistence.
func (r Recipe) Validate() error {
	if r.ItemID == "" || r.RestaurantID == "" {
		return ErrInvalidRecipe
	}
	for _, line := range r.StockLines {
		if line.StockID == "" || line.Quantity < 0 {
			return ErrInvalidRecipe
		}
	}
	return nil
}

var (
	// ErrRecipeNotFound indicates no recipe mapping for a menu item.
	ErrRecipeNotFound = errors.New("menu: recipe not found")
	// ErrInvalidRecipe indicates a recipe that fails validation.
	ErrInvalidRecipe = errors.New("menu: invalid recipe")
)
