package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amadile/Shopping-site-sub001/internal/service"
	"github.com/amadile/Shopping-site-sub001/pkg/httputil"
)

// CommissionHandler handles HTTP requests for vendor commission endpoints.
type CommissionHandler struct {
	service *service.CommissionService
	logger  *slog.Logger
}

// NewCommissionHandler creates a new commission HTTP handler.
func NewCommissionHandler(svc *service.CommissionService, logger *slog.Logger) *CommissionHandler {
	return &CommissionHandler{
		service: svc,
		logger:  logger,
	}
}

// Calculate handles POST /api/orders/{id}/commissions
func (h *CommissionHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.service.CalculateOrderCommissions(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Recalculate handles POST /api/orders/{id}/commissions/recalculate
func (h *CommissionHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.service.RecalculateOrderCommissions(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GetVendorLedger handles GET /api/vendors/{id}/ledger
func (h *CommissionHandler) GetVendorLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ledger, err := h.service.GetVendorLedger(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ledger})
}
