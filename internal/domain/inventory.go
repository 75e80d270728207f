package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors raised by stock ledger operations.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// Stock transaction types recorded in the inventory log.
const (
	TransactionTypeRestock    = "restock"
	TransactionTypeSale       = "sale"
	TransactionTypeReturn     = "return"
	TransactionTypeAdjustment = "adjustment"
	TransactionTypeReserved   = "reserved"
)

// Inventory is the stock ledger for one product or product variant.
// AvailableStock, IsLowStock and IsOutOfStock are derived and recomputed by
// Recalculate on every mutation.
type Inventory struct {
	ID                string             `json:"id"`
	ProductID         string             `json:"product_id"`
	VariantID         string             `json:"variant_id,omitempty"`
	SKU               string             `json:"sku"`
	CurrentStock      int                `json:"current_stock"`
	ReservedStock     int                `json:"reserved_stock"`
	AvailableStock    int                `json:"available_stock"`
	LowStockThreshold int                `json:"low_stock_threshold"`
	ReorderPoint      int                `json:"reorder_point"`
	MaxStockLevel     int                `json:"max_stock_level"`
	IsLowStock        bool               `json:"is_low_stock"`
	IsOutOfStock      bool               `json:"is_out_of_stock"`
	Transactions      []StockTransaction `json:"transactions,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// StockTransaction is an append-only entry of the inventory log.
type StockTransaction struct {
	ID            string    `json:"id"`
	InventoryID   string    `json:"inventory_id"`
	Type          string    `json:"type"`
	Quantity      int       `json:"quantity"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	OrderID       string    `json:"order_id,omitempty"`
	PerformedBy   string    `json:"performed_by,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// InsufficientStockError reports a shortfall with the quantities involved.
type InsufficientStockError struct {
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientStock.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Recalculate refreshes the derived stock fields.
func (i *Inventory) Recalculate() {
	i.AvailableStock = i.CurrentStock - i.ReservedStock
	i.IsOutOfStock = i.AvailableStock <= 0
	i.IsLowStock = !i.IsOutOfStock && i.AvailableStock <= i.LowStockThreshold
}

// Reserve places a hold of qty units. The hold reduces available stock but
// never current stock.
func (i *Inventory) Reserve(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	i.Recalculate()
	if i.AvailableStock < qty {
		return &InsufficientStockError{Requested: qty, Available: i.AvailableStock}
	}
	i.ReservedStock += qty
	i.Recalculate()
	return nil
}

// ReleaseHold returns qty held units to availability, flooring reserved stock at zero.
func (i *Inventory) ReleaseHold(qty int) {
	i.ReservedStock -= qty
	if i.ReservedStock < 0 {
		i.ReservedStock = 0
	}
	i.Recalculate()
}

// ConfirmHold converts a hold into a stock deduction. The hold is dropped
// first and the removal re-validates availability, so a hold that no longer
// fits the physical count fails instead of driving stock negative.
func (i *Inventory) ConfirmHold(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	i.ReleaseHold(qty)
	return i.Remove(qty)
}

// Remove deducts qty from current stock when that much is available.
func (i *Inventory) Remove(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	i.Recalculate()
	if i.AvailableStock < qty {
		return &InsufficientStockError{Requested: qty, Available: i.AvailableStock}
	}
	i.CurrentStock -= qty
	i.Recalculate()
	return nil
}

// Restock adds qty to current stock. It reports whether current stock
// crossed the low-stock threshold upward.
func (i *Inventory) Restock(qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	previous := i.CurrentStock
	i.CurrentStock += qty
	i.Recalculate()
	return previous <= i.LowStockThreshold && i.CurrentStock > i.LowStockThreshold, nil
}

// SetStock overwrites current stock and returns the signed delta.
func (i *Inventory) SetStock(newQty int) (int, error) {
	if newQty < 0 {
		return 0, fmt.Errorf("%w: stock cannot be negative (%d)", ErrInvalidQuantity, newQty)
	}
	delta := newQty - i.CurrentStock
	i.CurrentStock = newQty
	i.Recalculate()
	return delta, nil
}

// NeedsReorder reports whether available stock is at or below the reorder point.
func (i *Inventory) NeedsReorder() bool {
	return i.ReorderPoint > 0 && i.AvailableStock <= i.ReorderPoint
}

// ValidateInvariants returns an error describing the first violated ledger invariant.
func (i *Inventory) ValidateInvariants() error {
	switch {
	case i.CurrentStock < 0:
		return fmt.Errorf("current stock is negative: %d", i.CurrentStock)
	case i.ReservedStock < 0:
		return fmt.Errorf("reserved stock is negative: %d", i.ReservedStock)
	case i.ReservedStock > i.CurrentStock:
		return fmt.Errorf("reserved stock %d exceeds current stock %d", i.ReservedStock, i.CurrentStock)
	}
	return nil
}

// NewTransaction builds a log entry snapshotting the given stock levels.
func (i *Inventory) NewTransaction(txType string, qty, previous int, orderID, actor, reason string) StockTransaction {
	return StockTransaction{
		InventoryID:   i.ID,
		Type:          txType,
		Quantity:      qty,
		PreviousStock: previous,
		NewStock:      i.CurrentStock,
		OrderID:       orderID,
		PerformedBy:   actor,
		Reason:        reason,
	}
}

// ValidTransactionTypes returns the set of valid stock transaction types.
func ValidTransactionTypes() []string {
	return []string{
		TransactionTypeRestock,
		TransactionTypeSale,
		TransactionTypeReturn,
		TransactionTypeAdjustment,
		TransactionTypeReserved,
	}
}

// IsValidTransactionType checks whether the given type is a valid stock transaction type.
func IsValidTransactionType(t string) bool {
	for _, v := range ValidTransactionTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// AvailabilityResult is the outcome of an availability check.
type AvailabilityResult struct {
	Available bool   `json:"available"`
	Stock     int    `json:"stock"`
	Reason    string `json:"reason,omitempty"`
}
