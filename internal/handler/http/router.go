package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amadile/Shopping-site-sub001/internal/service"
	"github.com/amadile/Shopping-site-sub001/pkg/health"
	"github.com/amadile/Shopping-site-sub001/pkg/middleware"
)

const serviceName = "inventory"

// Services groups the application services exposed over HTTP.
type Services struct {
	Inventory    *service.InventoryService
	Cancellation *service.CancellationService
	Settlement   *service.SettlementService
	Commissions  *service.CommissionService
}

// NewRouter creates a chi router with all inventory, order and commission
// routes registered. Every /api route requires a bearer token.
func NewRouter(
	services Services,
	healthHandler *health.Handler,
	validate middleware.TokenValidator,
	cors middleware.CORSConfig,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	inventoryHandler := NewInventoryHandler(services.Inventory, logger)
	orderHandler := NewOrderHandler(services.Cancellation, services.Settlement, logger)
	commissionHandler := NewCommissionHandler(services.Commissions, logger)
	admin := middleware.RequireRole(roleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore())
		r.Use(middleware.Auth(validate))

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/check-availability", inventoryHandler.CheckAvailability)
			r.Post("/reserve", inventoryHandler.ReserveStock)
			r.Post("/reserve/{id}/confirm", inventoryHandler.ConfirmReservation)
			r.Post("/reserve/{id}/release", inventoryHandler.ReleaseReservation)
			r.Get("/low-stock", inventoryHandler.ListLowStock)
			r.Get("/alerts", inventoryHandler.ListAlerts)
			r.Get("/products/{productId}", inventoryHandler.GetInventoryByProduct)
			r.Get("/{id}", inventoryHandler.GetInventory)
			r.Get("/{id}/history", inventoryHandler.ListHistory)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Post("/", inventoryHandler.CreateInventory)
				r.Post("/release-expired", inventoryHandler.ReleaseExpired)
				r.Post("/{id}/restock", inventoryHandler.Restock)
				r.Post("/{id}/adjust", inventoryHandler.AdjustStock)
				r.Post("/alerts/{id}/acknowledge", inventoryHandler.AcknowledgeAlert)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/{id}/cancel", orderHandler.CancelOrder)
			r.Get("/{id}/can-cancel", orderHandler.CanCancelOrder)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/cancellation-stats", orderHandler.GetCancellationStats)
				r.Post("/{id}/settle", orderHandler.SettleOrder)
				r.Post("/{id}/commissions", commissionHandler.Calculate)
				r.Post("/{id}/commissions/recalculate", commissionHandler.Recalculate)
			})
		})

		r.With(admin).Get("/vendors/{id}/ledger", commissionHandler.GetVendorLedger)
	})

	return r
}
