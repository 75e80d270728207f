package repository

import (
	"context"
	"time"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
)

// InventoryRepository defines persistence for stock ledgers and their log.
type InventoryRepository interface {
	// Create inserts a new inventory record.
	Create(ctx context.Context, inv *domain.Inventory) error

	// GetByID retrieves an inventory record by id.
	GetByID(ctx context.Context, id string) (*domain.Inventory, error)

	// GetByProductVariant retrieves the inventory of a product or product variant.
	// An empty variantID selects the product-level record.
	GetByProductVariant(ctx context.Context, productID, variantID string) (*domain.Inventory, error)

	// GetForUpdate retrieves an inventory record and locks it until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Inventory, error)

	// Save persists quantities, thresholds and derived flags.
	Save(ctx context.Context, inv *domain.Inventory) error

	// AppendTransaction adds an entry to the inventory log.
	AppendTransaction(ctx context.Context, tx *domain.StockTransaction) error

	// ListTransactions returns the most recent log entries, newest first.
	ListTransactions(ctx context.Context, inventoryID string, limit int) ([]domain.StockTransaction, error)

	// ListLowStock returns records flagged low or out of stock.
	ListLowStock(ctx context.Context, page, perPage int) ([]domain.Inventory, int, error)
}

// ReservationRepository defines persistence for stock reservations.
type ReservationRepository interface {
	// Create inserts a new reservation.
	Create(ctx context.Context, r *domain.StockReservation) error

	// GetByID retrieves a reservation by id.
	GetByID(ctx context.Context, id string) (*domain.StockReservation, error)

	// GetForUpdate retrieves a reservation and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.StockReservation, error)

	// ListByOrder returns every reservation tied to an order.
	ListByOrder(ctx context.Context, orderID string) ([]domain.StockReservation, error)

	// ListExpiredActive returns up to limit active reservations whose expiry
	// is before now, ordered by (expires_at, id) and starting after the cursor.
	ListExpiredActive(ctx context.Context, now time.Time, after ExpiryCursor, limit int) ([]domain.StockReservation, error)

	// UpdateStatus persists status, timestamps and release reason.
	UpdateStatus(ctx context.Context, r *domain.StockReservation) error

	// PurgeResolvedBefore deletes non-active reservations created before cutoff.
	PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpiryCursor is the position of a paged expiry scan. The zero value starts
// at the beginning.
type ExpiryCursor struct {
	ExpiresAt time.Time
	ID        string
}

// IsZero reports whether the cursor is at the beginning.
func (c ExpiryCursor) IsZero() bool {
	return c.ID == ""
}

// CursorAfter returns the cursor positioned on r.
func CursorAfter(r domain.StockReservation) ExpiryCursor {
	return ExpiryCursor{ExpiresAt: r.ExpiresAt, ID: r.ID}
}

// StockHistoryRepository defines persistence for the stock audit trail.
type StockHistoryRepository interface {
	// Create inserts an audit record.
	Create(ctx context.Context, h *domain.StockHistory) error

	// ListByInventory returns audit records for an inventory, newest first.
	ListByInventory(ctx context.Context, inventoryID string, page, perPage int) ([]domain.StockHistory, int, error)
}

// StockAlertRepository defines persistence for stock alerts.
type StockAlertRepository interface {
	// Create inserts an alert.
	Create(ctx context.Context, a *domain.StockAlert) error

	// GetByID retrieves an alert by id.
	GetByID(ctx context.Context, id string) (*domain.StockAlert, error)

	// HasActive reports whether an active alert of the type exists for the inventory.
	HasActive(ctx context.Context, inventoryID, alertType string) (bool, error)

	// ResolveActive resolves active alerts of the type and returns how many changed.
	ResolveActive(ctx context.Context, inventoryID, alertType string, at time.Time) (int64, error)

	// Update persists status and acknowledgement fields.
	Update(ctx context.Context, a *domain.StockAlert) error

	// List returns alerts filtered by status (empty for all), newest first.
	List(ctx context.Context, status string, page, perPage int) ([]domain.StockAlert, int, error)
}

// OrderRepository defines the order fields read and written by this service.
type OrderRepository interface {
	// GetByID retrieves an order with items and each item's resolved vendor.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetForUpdate is GetByID with a row lock on the order.
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)

	// UpdateStatus persists status, payment and cancellation fields.
	UpdateStatus(ctx context.Context, o *domain.Order) error

	// UpdateCommission persists commission totals, primary vendor and commission status.
	UpdateCommission(ctx context.Context, o *domain.Order) error

	// CancellationStats aggregates orders cancelled within [from, to].
	CancellationStats(ctx context.Context, from, to time.Time) (*domain.CancellationStats, error)
}

// VendorRepository defines persistence for vendor rates and counters.
type VendorRepository interface {
	// GetByID retrieves a vendor by id.
	GetByID(ctx context.Context, id string) (*domain.Vendor, error)

	// UpdateSalesStats applies the delta to the rolling counters atomically.
	UpdateSalesStats(ctx context.Context, vendorID string, delta domain.SalesStatsDelta) error
}

// CommissionRepository defines persistence for the commission ledger.
type CommissionRepository interface {
	// Append inserts a ledger entry.
	Append(ctx context.Context, e *domain.CommissionEntry) error

	// ListByOrder returns the ledger entries of an order, oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]domain.CommissionEntry, error)

	// ListByVendor returns the ledger entries of a vendor, oldest first.
	ListByVendor(ctx context.Context, vendorID string) ([]domain.CommissionEntry, error)
}

// RefundRepository defines persistence for refund records.
type RefundRepository interface {
	// Create inserts a refund.
	Create(ctx context.Context, r *domain.Refund) error

	// GetByOrder retrieves the refund of an order.
	GetByOrder(ctx context.Context, orderID string) (*domain.Refund, error)
}

// Store groups the repositories and owns the transaction boundary. The Store
// passed to fn shares one transaction; it is invalid after fn returns.
type Store interface {
	Inventories() InventoryRepository
	Reservations() ReservationRepository
	History() StockHistoryRepository
	Alerts() StockAlertRepository
	Orders() OrderRepository
	Vendors() VendorRepository
	Commissions() CommissionRepository
	Refunds() RefundRepository

	// WithinTx runs fn in a transaction, committing when it returns nil.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
