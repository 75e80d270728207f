package domain

import (
	"errors"
	"fmt"
	"time"
)

// Reservation status constants.
const (
	ReservationStatusActive    = "active"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusReleased  = "released"
	ReservationStatusExpired   = "expired"
)

// DefaultReservationMinutes is the hold duration used when a caller does not pick one.
const DefaultReservationMinutes = 15

// ReleaseReasonExpired is recorded on reservations released by the expiry sweep.
const ReleaseReasonExpired = "Reservation expired"

// ErrReservationNotConfirmable is returned when confirming a released or expired hold.
var ErrReservationNotConfirmable = errors.New("reservation cannot be confirmed")

// StockReservation is a time-boxed hold against one inventory record.
type StockReservation struct {
	ID            string     `json:"id"`
	InventoryID   string     `json:"inventory_id"`
	ProductID     string     `json:"product_id"`
	VariantID     string     `json:"variant_id,omitempty"`
	Quantity      int        `json:"quantity"`
	UserID        string     `json:"user_id"`
	OrderID       string     `json:"order_id"`
	Status        string     `json:"status"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	ReleasedAt    *time.Time `json:"released_at,omitempty"`
	ReleaseReason string     `json:"release_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsActive returns true if the reservation still holds stock.
func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// IsTerminal reports whether no further transition is allowed.
func (r *StockReservation) IsTerminal() bool {
	return r.Status != ReservationStatusActive
}

// IsExpiredAt returns true if the hold has passed its expiry at the given instant.
func (r *StockReservation) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// CanConfirm validates the active -> confirmed transition. An already
// confirmed reservation is reported separately by the caller as a no-op.
func (r *StockReservation) CanConfirm() error {
	switch r.Status {
	case ReservationStatusActive, ReservationStatusConfirmed:
		return nil
	default:
		return fmt.Errorf("%w: reservation %s is %s", ErrReservationNotConfirmable, r.ID, r.Status)
	}
}

// Confirm moves an active reservation to confirmed.
func (r *StockReservation) Confirm(now time.Time) {
	r.Status = ReservationStatusConfirmed
	r.ConfirmedAt = &now
}

// Release moves an active reservation to released.
func (r *StockReservation) Release(now time.Time, reason string) {
	r.Status = ReservationStatusReleased
	r.ReleasedAt = &now
	r.ReleaseReason = reason
}

// ValidReservationStatuses returns the set of valid reservation statuses.
func ValidReservationStatuses() []string {
	return []string{ReservationStatusActive, ReservationStatusConfirmed, ReservationStatusReleased, ReservationStatusExpired}
}

// IsValidReservationStatus checks whether the given status is a valid reservation status.
func IsValidReservationStatus(status string) bool {
	for _, s := range ValidReservationStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ReleaseResult is returned by a release attempt. Success is false when the
// reservation was already resolved and nothing changed.
type ReleaseResult struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	Reservation *StockReservation `json:"reservation,omitempty"`
	Inventory   *Inventory        `json:"inventory,omitempty"`
}

// ConfirmResult is returned by a confirmation attempt.
type ConfirmResult struct {
	Success          bool              `json:"success"`
	AlreadyConfirmed bool              `json:"already_confirmed"`
	Reservation      *StockReservation `json:"reservation"`
	Inventory        *Inventory        `json:"inventory,omitempty"`
}
