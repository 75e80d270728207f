package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

const orderColumns = `id, user_id, status, total_amount, currency, vendor_commission, platform_commission,
	vendor_id, commission_status, commission_calculated_at, cancellation_reason, cancelled_at, cancelled_by,
	paid_at, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.TotalAmount,
		&o.Currency,
		&o.VendorCommission,
		&o.PlatformCommission,
		&o.VendorID,
		&o.CommissionStatus,
		&o.CommissionCalculatedAt,
		&o.CancellationReason,
		&o.CancelledAt,
		&o.CancelledBy,
		&o.PaidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate retrieves an order with its items and locks the order row.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) get(ctx context.Context, query, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// listItems loads line items in their original order. The vendor is resolved
// through the product and is empty when either no longer exists.
func (r *OrderRepository) listItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT oi.id, oi.product_id, oi.variant_id, COALESCE(p.vendor_id::text, ''), oi.name, oi.price, oi.quantity
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.position ASC`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.ProductID,
			&it.VariantID,
			&it.VendorID,
			&it.Name,
			&it.Price,
			&it.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	return items, nil
}

// UpdateStatus persists status, payment and cancellation fields.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1, cancellation_reason = $2, cancelled_at = $3, cancelled_by = $4,
			paid_at = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.db.Exec(ctx, query,
		o.Status,
		o.CancellationReason,
		o.CancelledAt,
		o.CancelledBy,
		o.PaidAt,
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", o.ID)
	}
	return nil
}

// UpdateCommission persists commission totals, primary vendor and commission status.
func (r *OrderRepository) UpdateCommission(ctx context.Context, o *domain.Order) error {
	query := `
		UPDATE orders
		SET vendor_commission = $1, platform_commission = $2, vendor_id = $3,
			commission_status = $4, commission_calculated_at = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.db.Exec(ctx, query,
		o.VendorCommission,
		o.PlatformCommission,
		o.VendorID,
		o.CommissionStatus,
		o.CommissionCalculatedAt,
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order commission: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", o.ID)
	}
	return nil
}

// CancellationStats aggregates orders cancelled within [from, to].
func (r *OrderRepository) CancellationStats(ctx context.Context, from, to time.Time) (*domain.CancellationStats, error) {
	query := `
		SELECT count(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE status = 'cancelled' AND cancelled_at >= $1 AND cancelled_at <= $2`

	stats := &domain.CancellationStats{From: from, To: to}
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&stats.Count, &stats.TotalAmount); err != nil {
		return nil, fmt.Errorf("cancellation stats: %w", err)
	}
	if stats.Count > 0 {
		stats.AverageAmount = stats.TotalAmount / int64(stats.Count)
	}
	return stats, nil
}
