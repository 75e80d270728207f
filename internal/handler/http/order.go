package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amadile/Shopping-site-sub001/internal/service"
	"github.com/amadile/Shopping-site-sub001/pkg/httputil"
	"github.com/amadile/Shopping-site-sub001/pkg/middleware"
)

// OrderHandler handles HTTP requests for order cancellation and settlement.
type OrderHandler struct {
	cancellation *service.CancellationService
	settlement   *service.SettlementService
	logger       *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(cancellation *service.CancellationService, settlement *service.SettlementService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		cancellation: cancellation,
		settlement:   settlement,
		logger:       logger,
	}
}

// CancelOrderRequest is the JSON request body for cancelling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CancelOrderRequest
	if !decodeRequest(w, r, &req, true) {
		return
	}

	result, err := h.cancellation.CancelOrder(r.Context(), service.CancelOrderInput{
		OrderID: id.String(),
		UserID:  middleware.UserIDFromContext(r.Context()),
		Reason:  req.Reason,
		IsAdmin: isAdmin(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// CanCancelOrder handles GET /api/orders/{id}/can-cancel
func (h *OrderHandler) CanCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	eligibility, err := h.cancellation.CanCancelOrder(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()), isAdmin(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: eligibility})
}

// GetCancellationStats handles GET /api/orders/cancellation-stats
func (h *OrderHandler) GetCancellationStats(w http.ResponseWriter, r *http.Request) {
	start, ok := parseDateParam(w, r, "start_date")
	if !ok {
		return
	}
	end, ok := parseDateParam(w, r, "end_date")
	if !ok {
		return
	}

	stats, err := h.cancellation.GetCancellationStats(r.Context(), start, end)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// SettleOrder handles POST /api/orders/{id}/settle
func (h *OrderHandler) SettleOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.settlement.SettlePayment(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// parseDateParam reads an optional RFC 3339 timestamp or YYYY-MM-DD date
// from the query string.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, true
		}
	}
	httputil.WriteErrorCode(w, http.StatusBadRequest, "INVALID_PARAMETER", name+" must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	return nil, false
}
