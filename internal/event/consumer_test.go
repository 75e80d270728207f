package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	pkgkafka "github.com/amadile/Shopping-site-sub001/pkg/kafka"
)

// --- Mocks ---

type mockSettlement struct {
	mock.Mock
}

func (m *mockSettlement) SettlePayment(ctx context.Context, orderID, actor string) (*domain.SettlementResult, error) {
	args := m.Called(ctx, orderID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementResult), args.Error(1)
}

type mockCancellation struct {
	mock.Mock
}

func (m *mockCancellation) CancelOnRequest(ctx context.Context, orderID, requestedBy, reason string) (*domain.CancellationResult, error) {
	args := m.Called(ctx, orderID, requestedBy, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancellationResult), args.Error(1)
}

func newEvent(t *testing.T, topic string, data any) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.NewEvent(topic, "agg-1", AggregateTypeOrder, "test", data)
	require.NoError(t, err)
	return ev
}

// --- payment.succeeded ---

func TestHandlePaymentSucceeded_SettlesOrder(t *testing.T) {
	settlement := new(mockSettlement)
	c := NewConsumer(settlement, new(mockCancellation), newTestLogger())

	settlement.On("SettlePayment", mock.Anything, "order-1", SystemActor).
		Return(&domain.SettlementResult{MarkedPaid: true}, nil)

	err := c.HandlePaymentSucceeded(context.Background(), newEvent(t, TopicPaymentSucceeded, PaymentSucceededData{PaymentID: "pay-1", OrderID: "order-1"}))
	require.NoError(t, err)
	settlement.AssertExpectations(t)
}

func TestHandlePaymentSucceeded_MissingOrderIDSkipped(t *testing.T) {
	settlement := new(mockSettlement)
	c := NewConsumer(settlement, new(mockCancellation), newTestLogger())

	err := c.HandlePaymentSucceeded(context.Background(), newEvent(t, TopicPaymentSucceeded, PaymentSucceededData{PaymentID: "pay-1"}))
	require.NoError(t, err)
	settlement.AssertNotCalled(t, "SettlePayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePaymentSucceeded_ServiceErrorReturned(t *testing.T) {
	settlement := new(mockSettlement)
	c := NewConsumer(settlement, new(mockCancellation), newTestLogger())

	settlement.On("SettlePayment", mock.Anything, "order-1", SystemActor).Return(nil, errors.New("db down"))

	err := c.HandlePaymentSucceeded(context.Background(), newEvent(t, TopicPaymentSucceeded, PaymentSucceededData{OrderID: "order-1"}))
	assert.Error(t, err)
}

func TestHandlePaymentSucceeded_BadPayload(t *testing.T) {
	c := NewConsumer(new(mockSettlement), new(mockCancellation), newTestLogger())

	ev := newEvent(t, TopicPaymentSucceeded, nil)
	ev.Data = []byte(`{"order_id":`)
	assert.Error(t, c.HandlePaymentSucceeded(context.Background(), ev))
}

// --- order.cancel_requested ---

func TestHandleOrderCancelRequested_CancelsOrder(t *testing.T) {
	cancellation := new(mockCancellation)
	c := NewConsumer(new(mockSettlement), cancellation, newTestLogger())

	cancellation.On("CancelOnRequest", mock.Anything, "order-1", "fraud-service", "fraud suspected").
		Return(&domain.CancellationResult{Success: true, Order: &domain.Order{ID: "order-1"}}, nil)

	err := c.HandleOrderCancelRequested(context.Background(), newEvent(t, TopicOrderCancelRequested, OrderCancelRequestedData{
		OrderID:     "order-1",
		RequestedBy: "fraud-service",
		Reason:      "fraud suspected",
	}))
	require.NoError(t, err)
	cancellation.AssertExpectations(t)
}

func TestHandleOrderCancelRequested_DefaultsActor(t *testing.T) {
	cancellation := new(mockCancellation)
	c := NewConsumer(new(mockSettlement), cancellation, newTestLogger())

	cancellation.On("CancelOnRequest", mock.Anything, "order-1", SystemActor, "").
		Return(&domain.CancellationResult{Success: true}, nil)

	err := c.HandleOrderCancelRequested(context.Background(), newEvent(t, TopicOrderCancelRequested, OrderCancelRequestedData{OrderID: "order-1"}))
	require.NoError(t, err)
	cancellation.AssertExpectations(t)
}

func TestHandleOrderCancelRequested_AlreadyCancelledIsNotRetried(t *testing.T) {
	cancellation := new(mockCancellation)
	c := NewConsumer(new(mockSettlement), cancellation, newTestLogger())

	cancellation.On("CancelOnRequest", mock.Anything, "order-1", SystemActor, "").
		Return(nil, domain.ErrOrderAlreadyCancelled)

	err := c.HandleOrderCancelRequested(context.Background(), newEvent(t, TopicOrderCancelRequested, OrderCancelRequestedData{OrderID: "order-1"}))
	assert.NoError(t, err)
}

func TestHandleOrderCancelRequested_OtherErrorsReturned(t *testing.T) {
	cancellation := new(mockCancellation)
	c := NewConsumer(new(mockSettlement), cancellation, newTestLogger())

	cancellation.On("CancelOnRequest", mock.Anything, "order-1", SystemActor, "").
		Return(nil, errors.New("db down"))

	err := c.HandleOrderCancelRequested(context.Background(), newEvent(t, TopicOrderCancelRequested, OrderCancelRequestedData{OrderID: "order-1"}))
	assert.Error(t, err)
}
