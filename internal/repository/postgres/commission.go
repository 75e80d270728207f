package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

const commissionColumns = `id, order_id, vendor_id, type, revenue, rate::text, commission, payout,
	COALESCE(reverses_id::text, ''), created_at`

// CommissionRepository implements repository.CommissionRepository using PostgreSQL.
type CommissionRepository struct {
	db database.DBTX
}

// NewCommissionRepository creates a new PostgreSQL-backed commission ledger.
func NewCommissionRepository(db database.DBTX) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// Append inserts a ledger entry. A second reversal of the same accrual is
// rejected by a unique index and reported as a conflict.
func (r *CommissionRepository) Append(ctx context.Context, e *domain.CommissionEntry) error {
	query := `
		INSERT INTO commission_entries
			(id, order_id, vendor_id, type, revenue, rate, commission, payout, reverses_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, NULLIF($9, '')::uuid, $10)`

	_, err := r.db.Exec(ctx, query,
		e.ID,
		e.OrderID,
		e.VendorID,
		e.Type,
		e.Revenue,
		e.Rate.String(),
		e.Commission,
		e.Payout,
		e.ReversesID,
		e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("commission reversal", "reverses_id", e.ReversesID)
		}
		return fmt.Errorf("append commission entry: %w", err)
	}
	return nil
}

// ListByOrder returns the ledger entries of an order, oldest first.
func (r *CommissionRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.CommissionEntry, error) {
	query := `SELECT ` + commissionColumns + ` FROM commission_entries WHERE order_id = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, orderID)
}

// ListByVendor returns the ledger entries of a vendor, oldest first.
func (r *CommissionRepository) ListByVendor(ctx context.Context, vendorID string) ([]domain.CommissionEntry, error) {
	query := `SELECT ` + commissionColumns + ` FROM commission_entries WHERE vendor_id = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, vendorID)
}

func (r *CommissionRepository) list(ctx context.Context, query, arg string) ([]domain.CommissionEntry, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list commission entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.CommissionEntry{}
	for rows.Next() {
		var (
			e    domain.CommissionEntry
			rate string
		)
		if err := rows.Scan(
			&e.ID,
			&e.OrderID,
			&e.VendorID,
			&e.Type,
			&e.Revenue,
			&rate,
			&e.Commission,
			&e.Payout,
			&e.ReversesID,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan commission entry row: %w", err)
		}
		if e.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("parse commission entry rate: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commission entry rows: %w", err)
	}

	return entries, nil
}
