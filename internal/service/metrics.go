package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
)

var (
	// ReservationsTotal counts reservation state changes by outcome.
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Total number of reservation operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// SweepReleasedTotal counts reservations released by the expiry sweep.
	SweepReleasedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_sweep_released_total",
			Help: "Total number of expired reservations released by the sweep",
		},
	)

	// SweepFailedTotal counts expired reservations the sweep failed to release.
	SweepFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_sweep_failed_total",
			Help: "Total number of expired reservations the sweep failed to release",
		},
	)

	// StockAlertsRaisedTotal counts stock alerts raised by type.
	StockAlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_stock_alerts_raised_total",
			Help: "Total number of stock alerts raised",
		},
		[]string{"type"},
	)

	// CommissionCalculationsTotal counts commission runs by outcome.
	CommissionCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_calculations_total",
			Help: "Total number of order commission calculations by outcome",
		},
		[]string{"outcome"},
	)

	// CompensationFailuresTotal counts failed best-effort steps.
	CompensationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_compensation_failures_total",
			Help: "Total number of failed best-effort steps after cancellation or settlement",
		},
		[]string{"step"},
	)
)

func recordStepFailures(results []domain.StepResult) {
	for _, r := range results {
		if !r.Success {
			CompensationFailuresTotal.WithLabelValues(r.Step).Inc()
		}
	}
}
