package postgres

import (
	"context"
	"fmt"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
)

// StockHistoryRepository implements repository.StockHistoryRepository using PostgreSQL.
type StockHistoryRepository struct {
	db database.DBTX
}

// NewStockHistoryRepository creates a new PostgreSQL-backed history repository.
func NewStockHistoryRepository(db database.DBTX) *StockHistoryRepository {
	return &StockHistoryRepository{db: db}
}

// Create inserts an audit record.
func (r *StockHistoryRepository) Create(ctx context.Context, h *domain.StockHistory) error {
	query := `
		INSERT INTO stock_histories
			(id, inventory_id, product_id, variant_id, type, quantity, previous_stock, new_stock,
			 reference_id, performed_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		h.ID,
		h.InventoryID,
		h.ProductID,
		h.VariantID,
		h.Type,
		h.Quantity,
		h.PreviousStock,
		h.NewStock,
		h.ReferenceID,
		h.PerformedBy,
		h.Reason,
		h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock history: %w", err)
	}
	return nil
}

// ListByInventory returns audit records for an inventory, newest first.
func (r *StockHistoryRepository) ListByInventory(ctx context.Context, inventoryID string, page, perPage int) ([]domain.StockHistory, int, error) {
	_, perPage, offset := normalizePage(page, perPage)

	query := `
		SELECT id, inventory_id, product_id, variant_id, type, quantity, previous_stock, new_stock,
			reference_id, performed_by, reason, created_at, count(*) OVER() AS total_count
		FROM stock_histories
		WHERE inventory_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, inventoryID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock history: %w", err)
	}
	defer rows.Close()

	var (
		records    = []domain.StockHistory{}
		totalCount int
	)
	for rows.Next() {
		var h domain.StockHistory
		if err := rows.Scan(
			&h.ID,
			&h.InventoryID,
			&h.ProductID,
			&h.VariantID,
			&h.Type,
			&h.Quantity,
			&h.PreviousStock,
			&h.NewStock,
			&h.ReferenceID,
			&h.PerformedBy,
			&h.Reason,
			&h.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan stock history row: %w", err)
		}
		records = append(records, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stock history rows: %w", err)
	}

	return records, totalCount, nil
}
