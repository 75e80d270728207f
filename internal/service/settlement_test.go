package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

func TestSettlePayment_ConfirmsHoldsAndCalculatesCommissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVendor("vendor-a", "10")
	f.putVendor("vendor-b", "20")
	inv := f.createInventory(t, "prod-a", 10, 2)
	f.twoVendorOrder("order-1", domain.OrderStatusPending)
	res := f.reserve(t, "prod-a", 1, "order-1")

	result, err := f.settlement.SettlePayment(ctx, "order-1", "payment-service")
	require.NoError(t, err)
	assert.True(t, result.MarkedPaid)
	assert.Equal(t, domain.OrderStatusPaid, result.Order.Status)
	assert.NotNil(t, result.Order.PaidAt)
	assert.Equal(t, 0, domain.FailedSteps(result.Steps))
	require.Len(t, result.Steps, 2)
	assert.Equal(t, domain.StepConfirmReservation, result.Steps[0].Step)
	assert.Equal(t, res.ID, result.Steps[0].Target)
	assert.Equal(t, domain.StepCalculateCommission, result.Steps[1].Step)
	require.NotNil(t, result.Commissions)
	assert.Equal(t, int64(3000), result.Commissions.TotalCommission)

	assert.Equal(t, 9, f.reload(t, inv.ID).CurrentStock)
	assert.Equal(t, domain.CommissionStatusComputed, f.order(t, "order-1").CommissionStatus)
}

func TestSettlePayment_ReplayIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.putVendor("vendor-a", "10")
	f.putVendor("vendor-b", "20")
	inv := f.createInventory(t, "prod-a", 10, 2)
	f.twoVendorOrder("order-1", domain.OrderStatusPending)
	f.reserve(t, "prod-a", 1, "order-1")

	_, err := f.settlement.SettlePayment(ctx, "order-1", "payment-service")
	require.NoError(t, err)

	again, err := f.settlement.SettlePayment(ctx, "order-1", "payment-service")
	require.NoError(t, err)
	assert.False(t, again.MarkedPaid)
	require.Len(t, again.Steps, 1)
	assert.True(t, again.Commissions.AlreadyCalculated)

	assert.Equal(t, 9, f.reload(t, inv.ID).CurrentStock)
	assert.Equal(t, 1, f.vendor(t, "vendor-a").TotalOrders)
}

func TestSettlePayment_CancelledOrder(t *testing.T) {
	f := newFixture(t)
	f.twoVendorOrder("order-1", domain.OrderStatusCancelled)

	_, err := f.settlement.SettlePayment(context.Background(), "order-1", "payment-service")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOrderNotPayable)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestSettlePayment_RequiresOrderID(t *testing.T) {
	f := newFixture(t)

	_, err := f.settlement.SettlePayment(context.Background(), "", "payment-service")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
