package domain

import "time"

// Stock history event types.
const (
	HistoryTypeRestock            = "restock"
	HistoryTypeSale               = "sale"
	HistoryTypeReturn             = "return"
	HistoryTypeAdjustment         = "adjustment"
	HistoryTypeReservation        = "reservation"
	HistoryTypeReservationRelease = "reservation_release"
)

// StockHistory is the immutable audit record of a stock-affecting event,
// kept apart from the inventory log for reporting.
type StockHistory struct {
	ID            string    `json:"id"`
	InventoryID   string    `json:"inventory_id"`
	ProductID     string    `json:"product_id"`
	VariantID     string    `json:"variant_id,omitempty"`
	Type          string    `json:"type"`
	Quantity      int       `json:"quantity"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	PerformedBy   string    `json:"performed_by,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryFromTransaction mirrors a log entry into an audit record.
func HistoryFromTransaction(inv *Inventory, historyType string, tx StockTransaction, referenceID string) *StockHistory {
	return &StockHistory{
		InventoryID:   inv.ID,
		ProductID:     inv.ProductID,
		VariantID:     inv.VariantID,
		Type:          historyType,
		Quantity:      tx.Quantity,
		PreviousStock: tx.PreviousStock,
		NewStock:      tx.NewStock,
		ReferenceID:   referenceID,
		PerformedBy:   tx.PerformedBy,
		Reason:        tx.Reason,
	}
}
