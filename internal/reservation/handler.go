package reservation

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/brigade-pos/brigade/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reservations.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the reservation handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers reservation routes. Booking creation is rate limited
// per client IP to keep scripted clients from hammering the allocator.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "booking rate limit exceeded")
		}),
	)

	r.Get("/reservations", h.list)
	r.Get("/reservations/{id}", h.get)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Post("/reservations", h.create)
	})
	r.Put("/reservations/{id}", h.update)
	r.Delete("/reservations/{id}", h.cancel)
}

type reservationRequest struct {
	RestaurantID string  `json:"restaurantId" validate:"required"`
	CustomerID   string  `json:"customerId"`
	CustomerName string  `json:"customerName"`
	StartTime    string  `json:"startTime" validate:"required"`
	EndTime      string  `json:"endTime" validate:"required"`
	TableNumber  string  `json:"tableNumber"`
	Advance      float64 `json:"advance"`
	Payment      float64 `json:"payment"`
	Notes        string  `json:"notes"`
}

type reservationResponse struct {
	AssignedTable string       `json:"assignedTable"`
	Reservation   *Reservation `json:"reservation"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	res, err := h.service.Create(r.Context(), CreateInput{
		RestaurantID: req.RestaurantID,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		StartTime:    start,
		EndTime:      end,
		TableNumber:  req.TableNumber,
		Advance:      req.Advance,
		Payment:      req.Payment,
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.logger.Info("reservation created",
		slog.String("restaurant_id", res.RestaurantID),
		slog.String("reservation_id", res.ID),
		slog.String("table", res.TableNumber))
	httpx.JSON(w, http.StatusCreated, reservationResponse{AssignedTable: res.TableNumber, Reservation: res})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.RestaurantID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "restaurantId is required")
		return
	}
	input := UpdateInput{
		ID:           chi.URLParam(r, "id"),
		RestaurantID: req.RestaurantID,
		CustomerName: req.CustomerName,
		TableNumber:  req.TableNumber,
		Advance:      req.Advance,
		Payment:      req.Payment,
		Notes:        req.Notes,
	}
	if req.StartTime != "" {
		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "startTime must be RFC3339")
			return
		}
		input.StartTime = start
	}
	if req.EndTime != "" {
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "endTime must be RFC3339")
			return
		}
		input.EndTime = end
	}
	res, err := h.service.Update(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reservationResponse{AssignedTable: res.TableNumber, Reservation: res})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("restaurant_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.List(r.Context(), r.URL.Query().Get("restaurant_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("restaurant_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("startTime must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("endTime must be RFC3339")
	}
	return start, end, nil
}

type conflictBody struct {
	httpx.ProblemDetail
	Booked    []string `json:"booked,omitempty"`
	Available []string `json:"available,omitempty"`
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		status := http.StatusConflict
		title := "Table Unavailable"
		if errors.Is(err, ErrInvalidTable) {
			status = http.StatusUnprocessableEntity
			title = "Invalid Table"
		}
		httpx.JSON(w, status, conflictBody{
			ProblemDetail: httpx.ProblemDetail{Title: title, Status: status, Detail: conflict.Reason.Error()},
			Booked:        conflict.Booked,
			Available:     conflict.Available,
		})
		return
	}
	switch {
	case errors.Is(err, ErrInvalidWindow), errors.Is(err, ErrRestaurantRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("reservation request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
