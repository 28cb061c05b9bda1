package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brigade-pos/brigade/internal/platform/httpx"
	"github.com/brigade-pos/brigade/internal/units"
)

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.list)
	r.Get("/inventory/{id}", h.get)
	r.Delete("/inventory/{id}", h.softDelete)
	r.Post("/inventory/receipts", h.receive)
	r.Post("/inventory/import", h.importLegacy)
	r.Post("/inventory/waste", h.writeOffWaste)
	r.Post("/inventory/availability", h.checkAvailability)
}

type receiptRequest struct {
	RestaurantID string  `json:"restaurantId" validate:"required"`
	StockID      string  `json:"stockId"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit" validate:"required"`
	SupplierID   string  `json:"supplierId" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	PricePerUnit float64 `json:"pricePerUnit" validate:"gte=0"`
	PurchasedAt  string  `json:"purchasedAt"`
}

// importRequest mirrors the loose quantity shapes of exported legacy
// documents; exactly one of the quantity fields is expected to resolve.
type importRequest struct {
	RestaurantID string `json:"restaurantId" validate:"required"`
	StockID      string `json:"stockId"`
	Name         string `json:"name" validate:"required"`
	Unit         string `json:"unit" validate:"required"`
	Stock        *struct {
		Quantity      *float64 `json:"quantity"`
		TotalQuantity *float64 `json:"totalQuantity"`
	} `json:"stock"`
	Quantity           *float64  `json:"quantity"`
	SupplierQuantities []float64 `json:"supplierQuantities"`
}

type wasteRequest struct {
	RestaurantID string  `json:"restaurantId" validate:"required"`
	StockID      string  `json:"stockId" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	Reason       string  `json:"reason"`
}

type soldItemRequest struct {
	ItemID   string  `json:"itemId" validate:"required"`
	ItemName string  `json:"itemName"`
	Quantity int     `json:"quantity" validate:"gt=0"`
	Size     string  `json:"size"`
	Price    float64 `json:"price"`
}

type availabilityRequest struct {
	RestaurantID string            `json:"restaurantId" validate:"required"`
	Items        []soldItemRequest `json:"items" validate:"required,dive"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	items, err := h.service.List(r.Context(), restaurantID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("restaurant_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) softDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.SoftDelete(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("restaurant_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := ReceiptInput{
		RestaurantID: req.RestaurantID,
		StockID:      req.StockID,
		Name:         req.Name,
		Unit:         units.Unit(req.Unit),
		SupplierID:   req.SupplierID,
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
	}
	if req.PurchasedAt != "" {
		purchasedAt, err := time.Parse(time.RFC3339, req.PurchasedAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "purchasedAt must be RFC3339")
			return
		}
		input.PurchasedAt = purchasedAt
	}
	item, err := h.service.ReceiveStock(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.logger.Info("stock received",
		slog.String("restaurant_id", req.RestaurantID),
		slog.String("stock_id", item.ID),
		slog.Float64("quantity", req.Quantity))
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) importLegacy(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := LegacyImportInput{
		RestaurantID: req.RestaurantID,
		StockID:      req.StockID,
		Name:         req.Name,
		Unit:         units.Unit(req.Unit),
		Record: LegacyRecord{
			Quantity:           req.Quantity,
			SupplierQuantities: req.SupplierQuantities,
		},
	}
	if req.Stock != nil {
		input.Record.Stock = &LegacyStock{
			Quantity:      req.Stock.Quantity,
			TotalQuantity: req.Stock.TotalQuantity,
		}
	}
	item, err := h.service.ImportLegacy(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.logger.Info("legacy stock imported",
		slog.String("restaurant_id", req.RestaurantID),
		slog.String("stock_id", item.ID))
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) writeOffWaste(w http.ResponseWriter, r *http.Request) {
	var req wasteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.WriteOffWaste(r.Context(), WasteInput{
		RestaurantID: req.RestaurantID,
		StockID:      req.StockID,
		Quantity:     req.Quantity,
		Reason:       req.Reason,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.logger.Info("waste written off",
		slog.String("restaurant_id", req.RestaurantID),
		slog.String("stock_id", req.StockID),
		slog.Float64("quantity", req.Quantity),
		slog.String("reason", req.Reason))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := AvailabilityInput{RestaurantID: req.RestaurantID}
	for _, item := range req.Items {
		input.Items = append(input.Items, SoldItem{
			ItemID:   item.ItemID,
			ItemName: item.ItemName,
			Quantity: item.Quantity,
			Size:     item.Size,
			Price:    item.Price,
		})
	}
	result, err := h.service.CheckAvailability(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRestaurantRequired), errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrWrongRestaurant):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	default:
		h.logger.Error("inventory request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
