package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amadile/Shopping-site-sub001/internal/service"
	"github.com/amadile/Shopping-site-sub001/pkg/httputil"
	"github.com/amadile/Shopping-site-sub001/pkg/middleware"
	"github.com/amadile/Shopping-site-sub001/pkg/pagination"
)

// InventoryHandler handles HTTP requests for inventory endpoints.
type InventoryHandler struct {
	service *service.InventoryService
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc *service.InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateInventoryRequest is the JSON request body for creating a stock ledger.
type CreateInventoryRequest struct {
	ProductID         string `json:"product_id" validate:"required,uuid"`
	VariantID         string `json:"variant_id" validate:"omitempty,max=64"`
	SKU               string `json:"sku" validate:"omitempty,max=64"`
	Name              string `json:"name" validate:"omitempty,max=255"`
	InitialStock      int    `json:"initial_stock" validate:"gte=0"`
	LowStockThreshold *int   `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	ReorderPoint      int    `json:"reorder_point" validate:"gte=0"`
	MaxStockLevel     int    `json:"max_stock_level" validate:"gte=0"`
}

// CheckAvailabilityRequest is the JSON request body for an availability check.
type CheckAvailabilityRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"omitempty,max=64"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// ReserveStockRequest is the JSON request body for placing a stock hold.
type ReserveStockRequest struct {
	ProductID        string `json:"product_id" validate:"required,uuid"`
	VariantID        string `json:"variant_id" validate:"omitempty,max=64"`
	Quantity         int    `json:"quantity" validate:"required,gte=1"`
	OrderID          string `json:"order_id" validate:"required,max=64"`
	ExpiresInMinutes int    `json:"expires_in_minutes" validate:"omitempty,gte=1,lte=1440"`
}

// ReleaseReservationRequest is the optional JSON body of a release.
type ReleaseReservationRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// RestockRequest is the JSON request body for adding stock.
type RestockRequest struct {
	Quantity int    `json:"quantity" validate:"required,gte=1"`
	Reason   string `json:"reason" validate:"omitempty,max=255"`
}

// AdjustStockRequest is the JSON request body for a manual stock correction.
type AdjustStockRequest struct {
	NewQuantity *int   `json:"new_quantity" validate:"required,gte=0"`
	Reason      string `json:"reason" validate:"required,max=255"`
}

// --- Handlers ---

// CreateInventory handles POST /api/inventory
func (h *InventoryHandler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	var req CreateInventoryRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	inv, err := h.service.CreateInventory(r.Context(), service.CreateInventoryInput{
		ProductID:         req.ProductID,
		VariantID:         req.VariantID,
		SKU:               req.SKU,
		Name:              req.Name,
		InitialStock:      req.InitialStock,
		LowStockThreshold: req.LowStockThreshold,
		ReorderPoint:      req.ReorderPoint,
		MaxStockLevel:     req.MaxStockLevel,
		Actor:             middleware.UserIDFromContext(r.Context()),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: inv})
}

// GetInventory handles GET /api/inventory/{id}
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	inv, err := h.service.GetInventory(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}

// GetInventoryByProduct handles GET /api/inventory/products/{productId}
func (h *InventoryHandler) GetInventoryByProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	inv, err := h.service.GetInventoryByProduct(r.Context(), productID.String(), r.URL.Query().Get("variant_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}

// CheckAvailability handles POST /api/inventory/check-availability
func (h *InventoryHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req CheckAvailabilityRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	result, err := h.service.CheckAvailability(r.Context(), req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ReserveStock handles POST /api/inventory/reserve
func (h *InventoryHandler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	var req ReserveStockRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	reservation, err := h.service.ReserveStock(r.Context(), service.ReserveStockInput{
		ProductID:        req.ProductID,
		VariantID:        req.VariantID,
		Quantity:         req.Quantity,
		UserID:           middleware.UserIDFromContext(r.Context()),
		OrderID:          req.OrderID,
		ExpiresInMinutes: req.ExpiresInMinutes,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: reservation})
}

// ConfirmReservation handles POST /api/inventory/reserve/{id}/confirm
func (h *InventoryHandler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.service.ConfirmReservation(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ReleaseReservation handles POST /api/inventory/reserve/{id}/release
func (h *InventoryHandler) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ReleaseReservationRequest
	if !decodeRequest(w, r, &req, true) {
		return
	}

	result, err := h.service.ReleaseReservedStock(r.Context(), id.String(), req.Reason, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ReleaseExpired handles POST /api/inventory/release-expired
func (h *InventoryHandler) ReleaseExpired(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ReleaseExpiredReservations(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Restock handles POST /api/inventory/{id}/restock
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RestockRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	inv, err := h.service.AddStock(r.Context(), id.String(), req.Quantity, middleware.UserIDFromContext(r.Context()), req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}

// AdjustStock handles POST /api/inventory/{id}/adjust
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AdjustStockRequest
	if !decodeRequest(w, r, &req, false) {
		return
	}

	inv, err := h.service.AdjustStock(r.Context(), id.String(), *req.NewQuantity, middleware.UserIDFromContext(r.Context()), req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}

// ListHistory handles GET /api/inventory/{id}/history
func (h *InventoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	p := pagination.FromRequest(r)

	entries, total, err := h.service.ListHistory(r.Context(), id.String(), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(entries, total, p))
}

// ListLowStock handles GET /api/inventory/low-stock
func (h *InventoryHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)

	items, total, err := h.service.ListLowStock(r.Context(), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(items, total, p))
}

// ListAlerts handles GET /api/inventory/alerts
func (h *InventoryHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)

	alerts, total, err := h.service.ListAlerts(r.Context(), r.URL.Query().Get("status"), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(alerts, total, p))
}

// AcknowledgeAlert handles POST /api/inventory/alerts/{id}/acknowledge
func (h *InventoryHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	alert, err := h.service.AcknowledgeAlert(r.Context(), id.String(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: alert})
}
