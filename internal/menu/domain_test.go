package menu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brigade-pos/brigade/internal/units"
)

func TestLinesForSize(t *testing.T) {
	recipe := Recipe{
		ItemID:       "pizza",
		RestaurantID: "r1",
		StockLines: []StockLine{
			{StockID: "dough", Quantity: 100, Unit: units.UnitGram, Size: "half"},
			{StockID: "dough", Quantity: 200, Unit: units.UnitGram, Size: "full"},
			{StockID: "oil", Quantity: 10, Unit: units.UnitMillilitre},
		},
	}

	// No size keeps every line.
	require.Len(t, recipe.LinesForSize(""), 3)

	// A tagged size keeps exact matches only.
	lines := recipe.LinesForSize("half")
	require.Len(t, lines, 1)
	require.Equal(t, "dough", lines[0].StockID)
	require.Equal(t, 100.0, lines[0].Quantity)

	// An unknown size falls back to the untagged lines.
	lines = recipe.LinesForSize("family")
	require.Len(t, lines, 1)
	require.Equal(t, "oil", lines[0].StockID)
}

func TestLinesForSizeUntaggedRecipe(t *testing.T) {
	recipe := Recipe{
		ItemID:       "burger",
		RestaurantID: "r1",
		StockLines: []StockLine{
			{StockID: "bun", Quantity: 2, Unit: units.UnitPiece},
			{StockID: "patty", Quantity: 150, Unit: units.UnitGram},
		},
	}

	// Untagged lines apply to every sold size.
	require.Len(t, recipe.LinesForSize("half"), 2)
	require.Len(t, recipe.LinesForSize(""), 2)
}

func TestLinesForSizeNoMatchAndNoUntagged(t *testing.T) {
	recipe := Recipe{
		ItemID:       "pizza",
		RestaurantID: "r1",
		StockLines: []StockLine{
			{StockID: "dough", Quantity: 100, Unit: units.UnitGram, Size: "half"},
		},
	}
	require.Empty(t, recipe.LinesForSize("full"))
}

func TestValidate(t *testing.T) {
	valid := Recipe{ItemID: "i", RestaurantID: "r", StockLines: []StockLine{
		{StockID: "s", Quantity: 1, Unit: units.UnitGram},
	}}
	require.NoError(t, valid.Validate())

	require.ErrorIs(t, Recipe{RestaurantID: "r"}.Validate(), ErrInvalidRecipe)

	negative := valid
	negative.StockLines = []StockLine{{StockID: "s", Quantity: -1, Unit: units.UnitGram}}
	require.ErrorIs(t, negative.Validate(), ErrInvalidRecipe)
}
