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

const inventoryColumns = `id, product_id, variant_id, sku, current_stock, reserved_stock, available_stock,
	low_stock_threshold, reorder_point, max_stock_level, is_low_stock, is_out_of_stock, created_at, updated_at`

// InventoryRepository implements repository.InventoryRepository using PostgreSQL.
type InventoryRepository struct {
	db database.DBTX
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(db database.DBTX) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func scanInventory(row scanner) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := row.Scan(
		&inv.ID,
		&inv.ProductID,
		&inv.VariantID,
		&inv.SKU,
		&inv.CurrentStock,
		&inv.ReservedStock,
		&inv.AvailableStock,
		&inv.LowStockThreshold,
		&inv.ReorderPoint,
		&inv.MaxStockLevel,
		&inv.IsLowStock,
		&inv.IsOutOfStock,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a new inventory record.
func (r *InventoryRepository) Create(ctx context.Context, inv *domain.Inventory) error {
	inv.Recalculate()

	query := `
		INSERT INTO inventories (` + inventoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(ctx, query,
		inv.ID,
		inv.ProductID,
		inv.VariantID,
		inv.SKU,
		inv.CurrentStock,
		inv.ReservedStock,
		inv.AvailableStock,
		inv.LowStockThreshold,
		inv.ReorderPoint,
		inv.MaxStockLevel,
		inv.IsLowStock,
		inv.IsOutOfStock,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("inventory", "sku", inv.SKU)
		}
		return fmt.Errorf("insert inventory: %w", err)
	}

	return nil
}

// GetByID retrieves an inventory record by id.
func (r *InventoryRepository) GetByID(ctx context.Context, id string) (*domain.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE id = $1`

	inv, err := scanInventory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("inventory", id)
		}
		return nil, fmt.Errorf("get inventory by id: %w", err)
	}
	return inv, nil
}

// GetByProductVariant retrieves the inventory of a product or product variant.
func (r *InventoryRepository) GetByProductVariant(ctx context.Context, productID, variantID string) (*domain.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE product_id = $1 AND variant_id = $2`

	inv, err := scanInventory(r.db.QueryRow(ctx, query, productID, variantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("inventory", productID)
		}
		return nil, fmt.Errorf("get inventory by product variant: %w", err)
	}
	return inv, nil
}

// GetForUpdate retrieves an inventory record with a row lock held until the
// surrounding transaction ends.
func (r *InventoryRepository) GetForUpdate(ctx context.Context, id string) (inv *domain.Inventory, err error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE id = $1 FOR UPDATE`

	inv, err = scanInventory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("inventory", id)
		}
		return nil, fmt.Errorf("lock inventory: %w", err)
	}
	return inv, nil
}

// Save persists quantities, thresholds and derived flags. Derived flags are
// recomputed before writing.
func (r *InventoryRepository) Save(ctx context.Context, inv *domain.Inventory) error {
	inv.Recalculate()
	inv.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE inventories
		SET current_stock = $1, reserved_stock = $2, available_stock = $3,
			low_stock_threshold = $4, reorder_point = $5, max_stock_level = $6,
			is_low_stock = $7, is_out_of_stock = $8, updated_at = $9
		WHERE id = $10`

	ct, err := r.db.Exec(ctx, query,
		inv.CurrentStock,
		inv.ReservedStock,
		inv.AvailableStock,
		inv.LowStockThreshold,
		inv.ReorderPoint,
		inv.MaxStockLevel,
		inv.IsLowStock,
		inv.IsOutOfStock,
		inv.UpdatedAt,
		inv.ID,
	)
	if err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("inventory", inv.ID)
	}
	return nil
}

// AppendTransaction adds an entry to the inventory log.
func (r *InventoryRepository) AppendTransaction(ctx context.Context, tx *domain.StockTransaction) error {
	query := `
		INSERT INTO inventory_transactions
			(id, inventory_id, type, quantity, previous_stock, new_stock, order_id, performed_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		tx.ID,
		tx.InventoryID,
		tx.Type,
		tx.Quantity,
		tx.PreviousStock,
		tx.NewStock,
		tx.OrderID,
		tx.PerformedBy,
		tx.Reason,
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append inventory transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the most recent log entries, newest first.
func (r *InventoryRepository) ListTransactions(ctx context.Context, inventoryID string, limit int) ([]domain.StockTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, inventory_id, type, quantity, previous_stock, new_stock, order_id, performed_by, reason, created_at
		FROM inventory_transactions
		WHERE inventory_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, inventoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.StockTransaction{}
	for rows.Next() {
		var t domain.StockTransaction
		if err := rows.Scan(
			&t.ID,
			&t.InventoryID,
			&t.Type,
			&t.Quantity,
			&t.PreviousStock,
			&t.NewStock,
			&t.OrderID,
			&t.PerformedBy,
			&t.Reason,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan inventory transaction row: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory transaction rows: %w", err)
	}

	return txs, nil
}

// ListLowStock returns records flagged low or out of stock, scarcest first.
func (r *InventoryRepository) ListLowStock(ctx context.Context, page, perPage int) ([]domain.Inventory, int, error) {
	_, perPage, offset := normalizePage(page, perPage)

	query := `
		SELECT ` + inventoryColumns + `, count(*) OVER() AS total_count
		FROM inventories
		WHERE is_low_stock OR is_out_of_stock
		ORDER BY available_stock ASC, updated_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	var (
		items      = []domain.Inventory{}
		totalCount int
	)
	for rows.Next() {
		var inv domain.Inventory
		if err := rows.Scan(
			&inv.ID,
			&inv.ProductID,
			&inv.VariantID,
			&inv.SKU,
			&inv.CurrentStock,
			&inv.ReservedStock,
			&inv.AvailableStock,
			&inv.LowStockThreshold,
			&inv.ReorderPoint,
			&inv.MaxStockLevel,
			&inv.IsLowStock,
			&inv.IsOutOfStock,
			&inv.CreatedAt,
			&inv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan low stock row: %w", err)
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate low stock rows: %w", err)
	}

	return items, totalCount, nil
}
