package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brigade-pos/brigade/internal/inventory"
	"github.com/brigade-pos/brigade/internal/lowstock"
	"github.com/brigade-pos/brigade/internal/menu"
	"github.com/brigade-pos/brigade/internal/observability"
	"github.com/brigade-pos/brigade/internal/orders"
	"github.com/brigade-pos/brigade/internal/reservation"
	"github.com/brigade-pos/brigade/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	InventoryHandler   *inventory.Handler
	MenuHandler        *menu.Handler
	OrdersHandler      *orders.Handler
	ReservationHandler *reservation.Handler
	LowStockHandler    *lowstock.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Brigade defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		params.InventoryHandler.MountRoutes(r)
		params.MenuHandler.MountRoutes(r)
		params.OrdersHandler.MountRoutes(r)
		params.ReservationHandler.MountRoutes(r)
		params.LowStockHandler.MountRoutes(r)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
