package menu

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brigade-pos/brigade/internal/platform/httpx"
	"github.com/brigade-pos/brigade/internal/units"
)

// Handler wires HTTP endpoints for recipe management.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler constructs the menu handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers menu routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/menu/recipes/{itemId}", h.getRecipe)
	r.Put("/menu/recipes/{itemId}", h.putRecipe)
}

func (h *Handler) getRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.repo.FindRecipeByItemID(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		if errors.Is(err, ErrRecipeNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("load recipe", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, recipeResponse(recipe))
}

type recipeLineRequest struct {
	StockID  string  `json:"stockId" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit" validate:"required"`
	Size     string  `json:"size"`
}

type recipeRequest struct {
	RestaurantID string              `json:"restaurantId" validate:"required"`
	ItemName     string              `json:"itemName"`
	StockLines   []recipeLineRequest `json:"stockLines" validate:"required,dive"`
}

func (h *Handler) putRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	recipe := Recipe{
		ItemID:       chi.URLParam(r, "itemId"),
		RestaurantID: req.RestaurantID,
		ItemName:     req.ItemName,
	}
	for _, line := range req.StockLines {
		recipe.StockLines = append(recipe.StockLines, StockLine{
			StockID:  line.StockID,
			Quantity: line.Quantity,
			Unit:     units.Unit(line.Unit),
			Size:     line.Size,
		})
	}
	if err := h.repo.UpsertRecipe(r.Context(), recipe); err != nil {
		if errors.Is(err, ErrInvalidRecipe) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("upsert recipe", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, recipeResponse(&recipe))
}

func recipeResponse(recipe *Recipe) map[string]any {
	lines := make([]map[string]any, 0, len(recipe.StockLines))
	for _, line := range recipe.StockLines {
		lines = append(lines, map[string]any{
			"stockId":  line.StockID,
			"quantity": line.Quantity,
			"unit":     line.Unit,
			"size":     line.Size,
		})
	}
	return map[string]any{
		"itemId":       recipe.ItemID,
		"restaurantId": recipe.RestaurantID,
		"itemName":     recipe.ItemName,
		"stockLines":   lines,
	}
}
