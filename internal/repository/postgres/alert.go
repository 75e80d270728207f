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

const alertColumns = `id, inventory_id, product_id, variant_id, type, status, current_stock, threshold,
	message, acknowledged_by, acknowledged_at, resolved_at, created_at`

// StockAlertRepository implements repository.StockAlertRepository using PostgreSQL.
type StockAlertRepository struct {
	db database.DBTX
}

// NewStockAlertRepository creates a new PostgreSQL-backed alert repository.
func NewStockAlertRepository(db database.DBTX) *StockAlertRepository {
	return &StockAlertRepository{db: db}
}

func scanAlert(row scanner, extra ...any) (*domain.StockAlert, error) {
	var a domain.StockAlert
	dest := []any{
		&a.ID,
		&a.InventoryID,
		&a.ProductID,
		&a.VariantID,
		&a.Type,
		&a.Status,
		&a.CurrentStock,
		&a.Threshold,
		&a.Message,
		&a.AcknowledgedBy,
		&a.AcknowledgedAt,
		&a.ResolvedAt,
		&a.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an alert.
func (r *StockAlertRepository) Create(ctx context.Context, a *domain.StockAlert) error {
	query := `
		INSERT INTO stock_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.InventoryID,
		a.ProductID,
		a.VariantID,
		a.Type,
		a.Status,
		a.CurrentStock,
		a.Threshold,
		a.Message,
		a.AcknowledgedBy,
		a.AcknowledgedAt,
		a.ResolvedAt,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by id.
func (r *StockAlertRepository) GetByID(ctx context.Context, id string) (*domain.StockAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM stock_alerts WHERE id = $1`

	a, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("stock alert", id)
		}
		return nil, fmt.Errorf("get stock alert by id: %w", err)
	}
	return a, nil
}

// HasActive reports whether an active alert of the type exists for the inventory.
func (r *StockAlertRepository) HasActive(ctx context.Context, inventoryID, alertType string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM stock_alerts WHERE inventory_id = $1 AND type = $2 AND status = 'active')`

	var exists bool
	if err := r.db.QueryRow(ctx, query, inventoryID, alertType).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active stock alert: %w", err)
	}
	return exists, nil
}

// ResolveActive resolves active alerts of the type.
func (r *StockAlertRepository) ResolveActive(ctx context.Context, inventoryID, alertType string, at time.Time) (int64, error) {
	query := `
		UPDATE stock_alerts
		SET status = 'resolved', resolved_at = $1
		WHERE inventory_id = $2 AND type = $3 AND status = 'active'`

	ct, err := r.db.Exec(ctx, query, at, inventoryID, alertType)
	if err != nil {
		return 0, fmt.Errorf("resolve stock alerts: %w", err)
	}
	return ct.RowsAffected(), nil
}

// Update persists status and acknowledgement fields.
func (r *StockAlertRepository) Update(ctx context.Context, a *domain.StockAlert) error {
	query := `
		UPDATE stock_alerts
		SET status = $1, acknowledged_by = $2, acknowledged_at = $3, resolved_at = $4
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query, a.Status, a.AcknowledgedBy, a.AcknowledgedAt, a.ResolvedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update stock alert: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("stock alert", a.ID)
	}
	return nil
}

// List returns alerts filtered by status, newest first.
func (r *StockAlertRepository) List(ctx context.Context, status string, page, perPage int) ([]domain.StockAlert, int, error) {
	_, perPage, offset := normalizePage(page, perPage)

	query := `
		SELECT ` + alertColumns + `, count(*) OVER() AS total_count
		FROM stock_alerts
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, status, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock alerts: %w", err)
	}
	defer rows.Close()

	var (
		alerts     = []domain.StockAlert{}
		totalCount int
	)
	for rows.Next() {
		a, err := scanAlert(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan stock alert row: %w", err)
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stock alert rows: %w", err)
	}

	return alerts, totalCount, nil
}
