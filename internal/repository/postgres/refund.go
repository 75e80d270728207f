package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

// RefundRepository implements repository.RefundRepository using PostgreSQL.
type RefundRepository struct {
	db database.DBTX
}

// NewRefundRepository creates a new PostgreSQL-backed refund repository.
func NewRefundRepository(db database.DBTX) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create inserts a refund.
func (r *RefundRepository) Create(ctx context.Context, ref *domain.Refund) error {
	query := `
		INSERT INTO refunds (id, order_id, amount, currency, status, reason, provider_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		ref.ID,
		ref.OrderID,
		ref.Amount,
		ref.Currency,
		ref.Status,
		ref.Reason,
		ref.ProviderRef,
		ref.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

// GetByOrder retrieves the latest refund of an order.
func (r *RefundRepository) GetByOrder(ctx context.Context, orderID string) (*domain.Refund, error) {
	query := `
		SELECT id, order_id, amount, currency, status, reason, provider_ref, created_at
		FROM refunds
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var ref domain.Refund
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&ref.ID,
		&ref.OrderID,
		&ref.Amount,
		&ref.Currency,
		&ref.Status,
		&ref.Reason,
		&ref.ProviderRef,
		&ref.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("refund", orderID)
		}
		return nil, fmt.Errorf("get refund by order: %w", err)
	}
	return &ref, nil
}
