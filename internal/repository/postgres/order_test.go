package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

var orderCols = []string{
	"id", "user_id", "status", "total_amount", "currency", "vendor_commission", "platform_commission",
	"vendor_id", "commission_status", "commission_calculated_at", "cancellation_reason", "cancelled_at",
	"cancelled_by", "paid_at", "created_at", "updated_at",
}

var orderItemCols = []string{"id", "product_id", "variant_id", "vendor_id", "name", "price", "quantity"}

func setupOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewOrderRepository(mock), mock
}

func orderRow(id, status string, total int64) []any {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []any{
		id, "user-1", status, total, "USD", int64(0), int64(0),
		"", domain.CommissionStatusUncomputed, (*time.Time)(nil), "", (*time.Time)(nil),
		"", (*time.Time)(nil), created, created,
	}
}

// ===========================================================================
// GetByID
// ===========================================================================

func TestOrderRepository_GetByID_LoadsItemsWithVendor(t *testing.T) {
	repo, mock := setupOrderRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(orderRow("order-1", domain.OrderStatusPaid, 5000)...))
	mock.ExpectQuery("SELECT .+ FROM order_items oi LEFT JOIN products").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows(orderItemCols).
			AddRow("item-1", "prod-1", "", "vendor-1", "Mug", int64(1000), 3).
			AddRow("item-2", "prod-2", "", "", "Orphan", int64(2000), 1))

	o, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "vendor-1", o.Items[0].VendorID)
	assert.Empty(t, o.Items[1].VendorID)
	assert.Equal(t, int64(3000), o.Items[0].LineTotal())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetForUpdate_NotFound(t *testing.T) {
	repo, mock := setupOrderRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id = \\$1 FOR UPDATE").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	o, err := repo.GetForUpdate(context.Background(), "missing")
	assert.Nil(t, o)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ===========================================================================
// Updates
// ===========================================================================

func TestOrderRepository_UpdateStatus(t *testing.T) {
	repo, mock := setupOrderRepo(t)
	defer mock.Close()

	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	o := &domain.Order{ID: "order-1", Status: domain.OrderStatusPaid}
	o.Cancel("changed my mind", "user-1", now)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusCancelled, "changed my mind", o.CancelledAt, "user-1", o.PaidAt, now, "order-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateStatus(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateCommission_NotFound(t *testing.T) {
	repo, mock := setupOrderRepo(t)
	defer mock.Close()

	o := &domain.Order{ID: "order-1", CommissionStatus: domain.CommissionStatusComputed}
	mock.ExpectExec("UPDATE orders SET vendor_commission").
		WithArgs(o.VendorCommission, o.PlatformCommission, o.VendorID, o.CommissionStatus,
			o.CommissionCalculatedAt, o.UpdatedAt, o.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateCommission(context.Background(), o)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CancellationStats(t *testing.T) {
	repo, mock := setupOrderRepo(t)
	defer mock.Close()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT count\\(\\*\\), COALESCE\\(SUM\\(total_amount\\), 0\\) FROM orders").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum"}).AddRow(4, int64(10000)))

	stats, err := repo.CancellationStats(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, int64(10000), stats.TotalAmount)
	assert.Equal(t, int64(2500), stats.AverageAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CancellationStats_NoCancellations(t *testing.T) {
	repo, mock := setupOrderRepo(t)
	defer mock.Close()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery("SELECT count").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count", "sum"}).AddRow(0, int64(0)))

	stats, err := repo.CancellationStats(context.Background(), from, to)
	require.NoError(t, err)
	assert.Zero(t, stats.AverageAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ===========================================================================
// Vendors
// ===========================================================================

func TestVendorRepository_GetByID_ParsesRate(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewVendorRepository(mock)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM vendors WHERE id").
		WithArgs("vendor-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "commission_rate", "total_sales", "total_orders", "total_revenue",
			"total_commission", "pending_payout", "updated_at",
		}).AddRow("vendor-1", "Acme", "12.50", 3, 3, int64(9000), int64(1125), int64(7875), now))

	v, err := repo.GetByID(context.Background(), "vendor-1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(v.CommissionRate))
	assert.Equal(t, int64(7875), v.PendingPayout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVendorRepository_UpdateSalesStats_AppliesDelta(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewVendorRepository(mock)

	delta := domain.SalesStatsDelta{Sales: -1, Orders: -1, Revenue: -3000, Commission: -300, Payout: -2700}
	mock.ExpectExec("UPDATE vendors SET total_sales = total_sales \\+ \\$1").
		WithArgs(-1, -1, int64(-3000), int64(-300), int64(-2700), "vendor-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateSalesStats(context.Background(), "vendor-1", delta))
	assert.NoError(t, mock.ExpectationsWereMet())
}
