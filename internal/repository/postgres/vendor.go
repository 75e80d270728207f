package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

// VendorRepository implements repository.VendorRepository using PostgreSQL.
type VendorRepository struct {
	db database.DBTX
}

// NewVendorRepository creates a new PostgreSQL-backed vendor repository.
func NewVendorRepository(db database.DBTX) *VendorRepository {
	return &VendorRepository{db: db}
}

// GetByID retrieves a vendor by id.
func (r *VendorRepository) GetByID(ctx context.Context, id string) (*domain.Vendor, error) {
	query := `
		SELECT id, name, commission_rate::text, total_sales, total_orders, total_revenue,
			total_commission, pending_payout, updated_at
		FROM vendors
		WHERE id = $1`

	var (
		v    domain.Vendor
		rate string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.Name,
		&rate,
		&v.TotalSales,
		&v.TotalOrders,
		&v.TotalRevenue,
		&v.TotalCommission,
		&v.PendingPayout,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("vendor", id)
		}
		return nil, fmt.Errorf("get vendor by id: %w", err)
	}

	v.CommissionRate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse commission rate of vendor %s: %w", id, err)
	}
	return &v, nil
}

// UpdateSalesStats applies the delta to the rolling counters in one statement.
func (r *VendorRepository) UpdateSalesStats(ctx context.Context, vendorID string, delta domain.SalesStatsDelta) error {
	query := `
		UPDATE vendors
		SET total_sales = total_sales + $1,
			total_orders = total_orders + $2,
			total_revenue = total_revenue + $3,
			total_commission = total_commission + $4,
			pending_payout = pending_payout + $5,
			updated_at = NOW()
		WHERE id = $6`

	ct, err := r.db.Exec(ctx, query,
		delta.Sales,
		delta.Orders,
		delta.Revenue,
		delta.Commission,
		delta.Payout,
		vendorID,
	)
	if err != nil {
		return fmt.Errorf("update vendor sales stats: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("vendor", vendorID)
	}
	return nil
}
