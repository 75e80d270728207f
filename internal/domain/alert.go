package domain

import (
	"fmt"
	"time"
)

// Stock alert types.
const (
	AlertTypeLowStock     = "low_stock"
	AlertTypeOutOfStock   = "out_of_stock"
	AlertTypeReorderPoint = "reorder_point"
)

// Stock alert statuses.
const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// StockAlert is a notification raised when an inventory crosses a threshold.
type StockAlert struct {
	ID             string     `json:"id"`
	InventoryID    string     `json:"inventory_id"`
	ProductID      string     `json:"product_id"`
	VariantID      string     `json:"variant_id,omitempty"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	CurrentStock   int        `json:"current_stock"`
	Threshold      int        `json:"threshold"`
	Message        string     `json:"message"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Acknowledge marks an active alert as seen by an operator.
func (a *StockAlert) Acknowledge(userID string, now time.Time) error {
	if a.Status != AlertStatusActive {
		return fmt.Errorf("alert %s is %s", a.ID, a.Status)
	}
	a.Status = AlertStatusAcknowledged
	a.AcknowledgedBy = userID
	a.AcknowledgedAt = &now
	return nil
}

// TriggeredAlerts returns the alert types whose condition holds for inv.
func TriggeredAlerts(inv *Inventory) []string {
	var types []string
	if inv.IsOutOfStock {
		types = append(types, AlertTypeOutOfStock)
	}
	if inv.IsLowStock {
		types = append(types, AlertTypeLowStock)
	}
	if inv.NeedsReorder() {
		types = append(types, AlertTypeReorderPoint)
	}
	return types
}

// NewStockAlert builds an active alert of the given type for inv.
func NewStockAlert(inv *Inventory, alertType string) *StockAlert {
	threshold := inv.LowStockThreshold
	var message string
	switch alertType {
	case AlertTypeOutOfStock:
		threshold = 0
		message = fmt.Sprintf("SKU %s is out of stock", inv.SKU)
	case AlertTypeReorderPoint:
		threshold = inv.ReorderPoint
		message = fmt.Sprintf("SKU %s reached its reorder point (%d available)", inv.SKU, inv.AvailableStock)
	default:
		message = fmt.Sprintf("SKU %s is low on stock (%d available, threshold %d)", inv.SKU, inv.AvailableStock, inv.LowStockThreshold)
	}
	return &StockAlert{
		InventoryID:  inv.ID,
		ProductID:    inv.ProductID,
		VariantID:    inv.VariantID,
		Type:         alertType,
		Status:       AlertStatusActive,
		CurrentStock: inv.AvailableStock,
		Threshold:    threshold,
		Message:      message,
	}
}

// IsValidAlertStatus checks whether the given status is a valid alert status.
func IsValidAlertStatus(status string) bool {
	switch status {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved:
		return true
	}
	return false
}
