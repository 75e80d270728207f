package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

func newInventory(id, sku string, stock int) *domain.Inventory {
	return &domain.Inventory{
		ID:                id,
		ProductID:         "prod-" + id,
		SKU:               sku,
		CurrentStock:      stock,
		LowStockThreshold: 10,
	}
}

func TestStore_InventoryCreate_RejectsDuplicateSKU(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Inventories().Create(ctx, newInventory("inv-1", "SKU-1", 5)))
	err := store.Inventories().Create(ctx, newInventory("inv-2", "SKU-1", 5))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestStore_InventoryGet_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Inventories().Create(ctx, newInventory("inv-1", "SKU-1", 5)))

	inv, err := store.Inventories().GetByID(ctx, "inv-1")
	require.NoError(t, err)
	inv.CurrentStock = 999

	again, err := store.Inventories().GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 5, again.CurrentStock)
	assert.True(t, again.IsLowStock)
}

func TestStore_WithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Inventories().Create(ctx, newInventory("inv-1", "SKU-1", 20)))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		inv, err := tx.Inventories().GetForUpdate(ctx, "inv-1")
		require.NoError(t, err)
		require.NoError(t, inv.Reserve(5))
		require.NoError(t, tx.Inventories().Save(ctx, inv))
		require.NoError(t, tx.Reservations().Create(ctx, &domain.StockReservation{
			ID: "res-1", InventoryID: "inv-1", Quantity: 5, Status: domain.ReservationStatusActive,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	inv, err := store.Inventories().GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 0, inv.ReservedStock)
	_, err = store.Reservations().GetByID(ctx, "res-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_WithinTx_SerializesWriters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Inventories().Create(ctx, newInventory("inv-1", "SKU-1", 10)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(tx repository.Store) error {
				inv, err := tx.Inventories().GetForUpdate(ctx, "inv-1")
				if err != nil {
					return err
				}
				if err := inv.Reserve(1); err != nil {
					return err
				}
				return tx.Inventories().Save(ctx, inv)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	inv, err := store.Inventories().GetByID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, inv.ReservedStock)
	assert.Equal(t, 0, inv.AvailableStock)
}

func TestStore_ListExpiredActive(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, r := range []domain.StockReservation{
		{ID: "expired", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-time.Minute)},
		{ID: "fresh", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(time.Minute)},
		{ID: "done", Status: domain.ReservationStatusConfirmed, ExpiresAt: now.Add(-time.Hour)},
	} {
		r := r
		require.NoError(t, store.Reservations().Create(ctx, &r))
	}

	list, err := store.Reservations().ListExpiredActive(ctx, now, repository.ExpiryCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "expired", list[0].ID)
}

func TestStore_ListExpiredActive_PagesByCursor(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tie := now.Add(-time.Hour)

	for _, r := range []domain.StockReservation{
		{ID: "c", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-time.Minute)},
		{ID: "b", Status: domain.ReservationStatusActive, ExpiresAt: tie},
		{ID: "a", Status: domain.ReservationStatusActive, ExpiresAt: tie},
		{ID: "d", Status: domain.ReservationStatusActive, ExpiresAt: now.Add(-time.Second)},
	} {
		r := r
		require.NoError(t, store.Reservations().Create(ctx, &r))
	}

	var (
		seen   []string
		cursor repository.ExpiryCursor
	)
	for {
		page, err := store.Reservations().ListExpiredActive(ctx, now, cursor, 2)
		require.NoError(t, err)
		for _, r := range page {
			seen = append(seen, r.ID)
		}
		if len(page) < 2 {
			break
		}
		cursor = repository.CursorAfter(page[len(page)-1])
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, seen)
}

func TestStore_PurgeResolvedBefore_KeepsActive(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Reservations().Create(ctx, &domain.StockReservation{ID: "a", Status: domain.ReservationStatusActive, CreatedAt: old}))
	require.NoError(t, store.Reservations().Create(ctx, &domain.StockReservation{ID: "b", Status: domain.ReservationStatusReleased, CreatedAt: old}))

	n, err := store.Reservations().PurgeResolvedBefore(ctx, old.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = store.Reservations().GetByID(ctx, "a")
	assert.NoError(t, err)
}

func TestStore_OrderItems_DropMissingVendor(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutVendor(&domain.Vendor{ID: "vendor-1"})
	store.PutOrder(&domain.Order{
		ID:     "order-1",
		Status: domain.OrderStatusPaid,
		Items: []domain.OrderItem{
			{ID: "i1", VendorID: "vendor-1", Price: 100, Quantity: 1},
			{ID: "i2", VendorID: "vendor-gone", Price: 100, Quantity: 1},
		},
	})

	o, err := store.Orders().GetByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionStatusUncomputed, o.CommissionStatus)
	assert.Equal(t, "vendor-1", o.Items[0].VendorID)
	assert.Empty(t, o.Items[1].VendorID)
}

func TestStore_CommissionAppend_SingleReversal(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Commissions().Append(ctx, &domain.CommissionEntry{ID: "r1", Type: domain.CommissionEntryReversal, ReversesID: "a1"}))
	err := store.Commissions().Append(ctx, &domain.CommissionEntry{ID: "r2", Type: domain.CommissionEntryReversal, ReversesID: "a1"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestStore_CancellationStats_Window(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	in := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	out := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	store.PutOrder(&domain.Order{ID: "a", Status: domain.OrderStatusCancelled, TotalAmount: 1000, CancelledAt: &in})
	store.PutOrder(&domain.Order{ID: "b", Status: domain.OrderStatusCancelled, TotalAmount: 3000, CancelledAt: &in})
	store.PutOrder(&domain.Order{ID: "c", Status: domain.OrderStatusCancelled, TotalAmount: 9000, CancelledAt: &out})
	store.PutOrder(&domain.Order{ID: "d", Status: domain.OrderStatusPaid, TotalAmount: 9000})

	stats, err := store.Orders().CancellationStats(ctx,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, int64(4000), stats.TotalAmount)
	assert.Equal(t, int64(2000), stats.AverageAmount)
}
