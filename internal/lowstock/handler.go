package lowstock

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brigade-pos/brigade/internal/platform/httpx"
)

// SweepEnqueuer submits a sweep to the background worker. An empty
// restaurant id requests a sweep over every restaurant.
type SweepEnqueuer interface {
	EnqueueLowStockSweep(ctx context.Context, restaurantID string) error
}

// Handler wires HTTP endpoints for low-stock reporting and manual sweeps.
type Handler struct {
	logger     *slog.Logger
	evaluator  *Evaluator
	thresholds *PGThresholdStore
	enqueuer   SweepEnqueuer
	validate   *validator.Validate
}

// NewHandler constructs the low-stock handler.
func NewHandler(logger *slog.Logger, evaluator *Evaluator, thresholds *PGThresholdStore, enqueuer SweepEnqueuer) *Handler {
	return &Handler{logger: logger, evaluator: evaluator, thresholds: thresholds, enqueuer: enqueuer, validate: validator.New()}
}

// MountRoutes registers low-stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/low-stock", h.report)
	r.Post("/low-stock/sweep", h.triggerSweep)
	r.Put("/low-stock/threshold", h.setThreshold)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "restaurant_id is required")
		return
	}
	items, err := h.evaluator.Evaluate(r.Context(), restaurantID)
	if err != nil {
		h.logger.Error("low stock report failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	threshold, err := h.evaluator.Threshold(r.Context(), restaurantID)
	if err != nil {
		h.logger.Error("low stock threshold lookup failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"threshold":     threshold,
		"lowStockItems": items,
	})
}

type sweepRequest struct {
	RestaurantID string `json:"restaurantId"`
}

func (h *Handler) triggerSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	if err := h.enqueuer.EnqueueLowStockSweep(r.Context(), req.RestaurantID); err != nil {
		h.logger.Error("enqueue low stock sweep", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

type thresholdRequest struct {
	RestaurantID string `json:"restaurantId" validate:"required"`
	Threshold    int    `json:"threshold" validate:"gte=0"`
}

func (h *Handler) setThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.thresholds.SetThreshold(r.Context(), req.RestaurantID, req.Threshold); err != nil {
		h.logger.Error("set threshold failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"restaurantId": req.RestaurantID,
		"threshold":    req.Threshold,
	})
}
