package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/event"
)

func TestCalculateOrderCommissions_TwoVendors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVendor("vendor-a", "10")
	f.putVendor("vendor-b", "20")
	f.twoVendorOrder("order-1", domain.OrderStatusPaid)

	result, err := f.commissions.CalculateOrderCommissions(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyCalculated)
	assert.Equal(t, int64(3000), result.TotalCommission)
	assert.Equal(t, "vendor-a", result.PrimaryVendorID)
	require.Len(t, result.Splits, 2)
	assert.Equal(t, int64(1000), result.Splits[0].Commission)
	assert.Equal(t, int64(9000), result.Splits[0].Payout)
	assert.Equal(t, int64(2000), result.Splits[1].Commission)
	assert.Equal(t, int64(8000), result.Splits[1].Payout)

	a := f.vendor(t, "vendor-a")
	assert.Equal(t, int64(9000), a.PendingPayout)
	assert.Equal(t, int64(10000), a.TotalRevenue)
	assert.Equal(t, 1, a.TotalOrders)
	b := f.vendor(t, "vendor-b")
	assert.Equal(t, int64(8000), b.PendingPayout)
	assert.Equal(t, int64(2000), b.TotalCommission)

	order := f.order(t, "order-1")
	assert.Equal(t, domain.CommissionStatusComputed, order.CommissionStatus)
	assert.Equal(t, int64(3000), order.VendorCommission)
	assert.Equal(t, int64(3000), order.PlatformCommission)
	assert.Equal(t, "vendor-a", order.VendorID)
	assert.NotNil(t, order.CommissionCalculatedAt)
	assert.Equal(t, 1, f.pub.count(event.TopicCommissionCalculated))
}

func TestCalculateOrderCommissions_SecondCallIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVendor("vendor-a", "10")
	f.putVendor("vendor-b", "20")
	f.twoVendorOrder("order-1", domain.OrderStatusPaid)

	_, err := f.commissions.CalculateOrderCommissions(ctx, "order-1")
	require.NoError(t, err)
	before := f.vendor(t, "vendor-a")

	again, err := f.commissions.CalculateOrderCommissions(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, again.AlreadyCalculated)
	assert.Equal(t, int64(3000), again.TotalCommission)
	assert.Len(t, again.Splits, 2)
	assert.Equal(t, before, f.vendor(t, "vendor-a"))
	assert.Equal(t, 1, f.pub.count(event.TopicCommissionCalculated))

	entries, err := f.store.Commissions().ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCalculateOrderCommissions_ZeroRateIsNotRecomputed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVendor("vendor-a", "0")
	f.putVendor("vendor-b", "0")
	f.twoVendorOrder("order-1", domain.OrderStatusPaid)

	first, err := f.commissions.CalculateOrderCommissions(ctx, "order-1")
	require.NoError(t, err)
	assert.Zero(t, first.TotalCommission)

	second, err := f.commissions.CalculateOrderCommissions(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, second.AlreadyCalculated)
	assert.Equal(t, 1, f.vendor(t, "vendor-a").TotalOrders)
}

func TestCalculateOrderCommissions_RoundsHalfAwayFromZero(t *testing.T) {
	f := newFixture(t)
	f.putVendor("vendor-a", "12.5")
	f.store.PutOrder(&domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Status: domain.OrderStatusPaid,
		Items: []domain.OrderItem{
			{ID: "i1", ProductID: "p1", VendorID: "vendor-a", Price: 1004, Quantity: 1},
		},
	})

	result, err := f.commissions.CalculateOrderCommissions(context.Background(), "order-1")
	require.NoError(t, err)
	// 1004 * 12.5% = 125.5
	assert.Equal(t, int64(126), result.TotalCommission)
	assert.Equal(t, int64(878), result.Splits[0].Payout)
}

func TestCalculateOrderCommissions_SkipsItemsWithoutVendor(t *testing.T) {
	f := newFixture(t)
	f.putVendor("vendor-a", "10")
	f.store.PutOrder(&domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Status: domain.OrderStatusPaid,
		Items: []domain.OrderItem{
			{ID: "i1", ProductID: "p1", VendorID: "vendor-a", Price: 5000, Quantity: 1},
			{ID: "i2", ProductID: "p2", VendorID: "vendor-gone", Price: 3000, Quantity: 1},
			{ID: "i3", ProductID: "p3", Price: 1000, Quantity: 1},
		},
	})

	result, err := f.commissions.CalculateOrderCommissions(context.Background(), "order-1")
	require.NoError(t, err)
	require.Len(t, result.Splits, 1)
	assert.Equal(t, int64(500), result.TotalCommission)
	assert.Len(t, result.Skipped, 2)
}

func TestCalculateOrderCommissions_UnpaidOrder(t *testing.T) {
	f := newFixture(t)
	f.putVendor("vendor-a", "10")
	f.putVendor("vendor-b", "20")
	f.twoVendorOrder("order-1", domain.OrderStatusPending)

	_, err := f.commissions.CalculateOrderCommissions(context.Background(), "order-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOrderNotSettled)
	assert.Equal(t, domain.CommissionStatusUncomputed, f.order(t, "order-1").CommissionStatus)
	assert.Zero(t, f.vendor(t, "vendor-a").TotalOrders)
}

func TestReverseOrderCommissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVendor("vendor-a", "10")
	f.putVendor("vendor-b", "20")
	f.twoVendorOrder("order-1", domain.OrderStatusPaid)
	_, err := f.commissions.CalculateOrderCommissions(ctx, "order-1")
	require.NoError(t, err)

	reversals, err := f.commissions.ReverseOrderCommissions(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, reversals, 2)
	for _, r := range reversals {
		assert.Equal(t, domain.CommissionEntryReversal, r.Type)
		assert.NotEmpty(t, r.ReversesID)
	}

	a := f.vendor(t, "vendor-a")
	assert.Zero(t, a.PendingPayout)
	assert.Zero(t, a.TotalOrders)
	order := f.order(t, "order-1")
	assert.Equal(t, domain.CommissionStatusReversed, order.CommissionStatus)
	assert.Zero(t, order.VendorCommission)

	again, err := f.commissions.ReverseOrderCommissions(ctx, "order-1")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 1, f.pub.count(event.TopicCommissionReversed))
}

func TestRecalculateOrderCommissions_DoesNotDoubleCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVendor("vendor-a", "10")
	f.putVendor("vendor-b", "20")
	f.twoVendorOrder("order-1", domain.OrderStatusPaid)
	_, err := f.commissions.CalculateOrderCommissions(ctx, "order-1")
	require.NoError(t, err)

	f.store.PutVendor(&domain.Vendor{
		ID:              "vendor-a",
		Name:            "vendor-a",
		CommissionRate:  decimal.RequireFromString("15"),
		TotalSales:      1,
		TotalOrders:     1,
		TotalRevenue:    10000,
		TotalCommission: 1000,
		PendingPayout:   9000,
	})

	result, err := f.commissions.RecalculateOrderCommissions(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, result.AlreadyCalculated)
	assert.Equal(t, int64(3500), result.TotalCommission)

	a := f.vendor(t, "vendor-a")
	assert.Equal(t, 1, a.TotalOrders)
	assert.Equal(t, int64(8500), a.PendingPayout)
	assert.Equal(t, int64(1500), a.TotalCommission)

	ledger, err := f.commissions.GetVendorLedger(ctx, "vendor-a")
	require.NoError(t, err)
	assert.Len(t, ledger.Entries, 3)
	assert.Equal(t, int64(8500), ledger.Totals.Payout)
	assert.Equal(t, 1, ledger.Totals.Orders)
}

func TestRecalculateOrderCommissions_UnpaidOrder(t *testing.T) {
	f := newFixture(t)
	f.twoVendorOrder("order-1", domain.OrderStatusCancelled)

	_, err := f.commissions.RecalculateOrderCommissions(context.Background(), "order-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotSettled)
}
