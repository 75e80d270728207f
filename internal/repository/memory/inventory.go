package memory

import (
	"context"
	"sort"
	"time"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

type inventoryRepo struct{ s *Store }

func (r *inventoryRepo) Create(_ context.Context, inv *domain.Inventory) error {
	defer r.s.lock()()

	for _, existing := range r.s.d.inventories {
		if existing.SKU == inv.SKU {
			return apperrors.AlreadyExists("inventory", "sku", inv.SKU)
		}
		if existing.ProductID == inv.ProductID && existing.VariantID == inv.VariantID {
			return apperrors.AlreadyExists("inventory", "product_id", inv.ProductID)
		}
	}
	inv.Recalculate()
	stored := *inv
	stored.Transactions = nil
	r.s.d.inventories[inv.ID] = stored
	return nil
}

func (r *inventoryRepo) GetByID(_ context.Context, id string) (*domain.Inventory, error) {
	defer r.s.lock()()

	inv, ok := r.s.d.inventories[id]
	if !ok {
		return nil, apperrors.NotFound("inventory", id)
	}
	return &inv, nil
}

func (r *inventoryRepo) GetByProductVariant(_ context.Context, productID, variantID string) (*domain.Inventory, error) {
	defer r.s.lock()()

	for _, inv := range r.s.d.inventories {
		if inv.ProductID == productID && inv.VariantID == variantID {
			return &inv, nil
		}
	}
	return nil, apperrors.NotFound("inventory", productID)
}

func (r *inventoryRepo) GetForUpdate(ctx context.Context, id string) (*domain.Inventory, error) {
	return r.GetByID(ctx, id)
}

func (r *inventoryRepo) Save(_ context.Context, inv *domain.Inventory) error {
	defer r.s.lock()()

	if _, ok := r.s.d.inventories[inv.ID]; !ok {
		return apperrors.NotFound("inventory", inv.ID)
	}
	inv.Recalculate()
	inv.UpdatedAt = time.Now().UTC()
	stored := *inv
	stored.Transactions = nil
	r.s.d.inventories[inv.ID] = stored
	return nil
}

func (r *inventoryRepo) AppendTransaction(_ context.Context, tx *domain.StockTransaction) error {
	defer r.s.lock()()

	r.s.d.transactions = append(r.s.d.transactions, *tx)
	return nil
}

func (r *inventoryRepo) ListTransactions(_ context.Context, inventoryID string, limit int) ([]domain.StockTransaction, error) {
	defer r.s.lock()()

	if limit <= 0 {
		limit = 50
	}
	txs := []domain.StockTransaction{}
	for i := len(r.s.d.transactions) - 1; i >= 0 && len(txs) < limit; i-- {
		if r.s.d.transactions[i].InventoryID == inventoryID {
			txs = append(txs, r.s.d.transactions[i])
		}
	}
	return txs, nil
}

func (r *inventoryRepo) ListLowStock(_ context.Context, page, perPage int) ([]domain.Inventory, int, error) {
	defer r.s.lock()()

	var matched []domain.Inventory
	for _, inv := range r.s.d.inventories {
		if inv.IsLowStock || inv.IsOutOfStock {
			matched = append(matched, inv)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].AvailableStock != matched[j].AvailableStock {
			return matched[i].AvailableStock < matched[j].AvailableStock
		}
		return matched[i].SKU < matched[j].SKU
	})
	return paginate(matched, page, perPage), len(matched), nil
}

// paginate returns the requested page of items, never nil.
func paginate[T any](items []T, page, perPage int) []T {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return append([]T{}, items[start:end]...)
}
