package domain

import (
	"errors"
	"time"
)

// Order status constants.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Cancellation gate errors.
var (
	ErrOrderAlreadyCancelled = errors.New("order is already cancelled")
	ErrOrderDelivered        = errors.New("delivered orders cannot be cancelled, must use return flow")
	ErrOrderShipped          = errors.New("shipped orders can only be cancelled by an administrator")
	ErrOrderNotOwned         = errors.New("order does not belong to the requesting user")
	ErrOrderNotPayable       = errors.New("order cannot be marked paid")
)

// Order is the slice of a customer order consumed by the reservation,
// cancellation and commission flows.
type Order struct {
	ID                     string      `json:"id"`
	UserID                 string      `json:"user_id"`
	Status                 string      `json:"status"`
	Items                  []OrderItem `json:"items"`
	TotalAmount            int64       `json:"total_amount"`
	Currency               string      `json:"currency"`
	VendorCommission       int64       `json:"vendor_commission"`
	PlatformCommission     int64       `json:"platform_commission"`
	VendorID               string      `json:"vendor_id,omitempty"`
	CommissionStatus       string      `json:"commission_status"`
	CommissionCalculatedAt *time.Time  `json:"commission_calculated_at,omitempty"`
	CancellationReason     string      `json:"cancellation_reason,omitempty"`
	CancelledAt            *time.Time  `json:"cancelled_at,omitempty"`
	CancelledBy            string      `json:"cancelled_by,omitempty"`
	PaidAt                 *time.Time  `json:"paid_at,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// OrderItem is a line item. VendorID is resolved from the owning product and
// is empty when the product or its vendor no longer exists.
type OrderItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	VendorID  string `json:"vendor_id,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// LineTotal returns the total price for this line item.
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// CheckCancellable evaluates the cancellation gate for the order's current status.
func (o *Order) CheckCancellable(isAdmin bool) error {
	switch o.Status {
	case OrderStatusCancelled:
		return ErrOrderAlreadyCancelled
	case OrderStatusDelivered:
		return ErrOrderDelivered
	case OrderStatusShipped:
		if !isAdmin {
			return ErrOrderShipped
		}
	}
	return nil
}

// StockDeducted reports whether the order reached a state where stock was taken.
func (o *Order) StockDeducted() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusShipped
}

// Cancel records the cancellation on the order.
func (o *Order) Cancel(reason, actor string, now time.Time) {
	o.Status = OrderStatusCancelled
	o.CancellationReason = reason
	o.CancelledAt = &now
	o.CancelledBy = actor
	o.UpdatedAt = now
}

// MarkPaid moves a pending order to paid. It returns false when the order was
// already paid or beyond.
func (o *Order) MarkPaid(now time.Time) (bool, error) {
	switch o.Status {
	case OrderStatusPending:
		o.Status = OrderStatusPaid
		o.PaidAt = &now
		o.UpdatedAt = now
		return true, nil
	case OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered:
		return false, nil
	default:
		return false, ErrOrderNotPayable
	}
}

// IsSettled reports whether payment has been captured for the order.
func (o *Order) IsSettled() bool {
	switch o.Status {
	case OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// CancelEligibility is the read-only evaluation of the cancellation gate.
type CancelEligibility struct {
	CanCancel bool   `json:"can_cancel"`
	Reason    string `json:"reason,omitempty"`
	Status    string `json:"status"`
}

// CancellationStats aggregates cancelled orders within a window.
type CancellationStats struct {
	Count         int       `json:"count"`
	TotalAmount   int64     `json:"total_amount"`
	AverageAmount int64     `json:"average_amount"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
}
