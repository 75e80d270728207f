package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	pkgkafka "github.com/amadile/Shopping-site-sub001/pkg/kafka"
)

// Kafka topics consumed by the service.
const (
	TopicPaymentSucceeded     = "ecommerce.payment.succeeded"
	TopicOrderCancelRequested = "ecommerce.order.cancel_requested"
)

// SystemActor is recorded as the actor of changes driven by events.
const SystemActor = "system"

// SettlementService is the settlement surface required by the consumer.
type SettlementService interface {
	SettlePayment(ctx context.Context, orderID, actor string) (*domain.SettlementResult, error)
}

// CancellationService is the cancellation surface required by the consumer.
type CancellationService interface {
	CancelOnRequest(ctx context.Context, orderID, requestedBy, reason string) (*domain.CancellationResult, error)
}

// PaymentSucceededData is the expected payload of a payment.succeeded event.
type PaymentSucceededData struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
}

// OrderCancelRequestedData is the expected payload of an order.cancel_requested event.
type OrderCancelRequestedData struct {
	OrderID     string `json:"order_id"`
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

// Consumer processes incoming Kafka events.
type Consumer struct {
	logger       *slog.Logger
	settlement   SettlementService
	cancellation CancellationService
}

// NewConsumer creates a new event consumer.
func NewConsumer(settlement SettlementService, cancellation CancellationService, logger *slog.Logger) *Consumer {
	return &Consumer{
		settlement:   settlement,
		cancellation: cancellation,
		logger:       logger,
	}
}

// HandlePaymentSucceeded settles the paid order: marks it paid, confirms its
// reservations and calculates commissions.
func (c *Consumer) HandlePaymentSucceeded(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentSucceededData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.succeeded data: %w", err)
	}
	if data.OrderID == "" {
		c.logger.WarnContext(ctx, "payment.succeeded event without order id, skipping",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	c.logger.InfoContext(ctx, "processing payment.succeeded event",
		slog.String("order_id", data.OrderID),
		slog.String("payment_id", data.PaymentID),
	)

	res, err := c.settlement.SettlePayment(ctx, data.OrderID, SystemActor)
	if err != nil {
		return fmt.Errorf("settle payment for order %s: %w", data.OrderID, err)
	}

	c.logger.InfoContext(ctx, "order settled",
		slog.String("order_id", data.OrderID),
		slog.Bool("marked_paid", res.MarkedPaid),
		slog.Int("failed_steps", domain.FailedSteps(res.Steps)),
	)

	return nil
}

// HandleOrderCancelRequested cancels the order on behalf of the requesting system.
func (c *Consumer) HandleOrderCancelRequested(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderCancelRequestedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal order.cancel_requested data: %w", err)
	}

	actor := data.RequestedBy
	if actor == "" {
		actor = SystemActor
	}

	res, err := c.cancellation.CancelOnRequest(ctx, data.OrderID, actor, data.Reason)
	if errors.Is(err, domain.ErrOrderAlreadyCancelled) || errors.Is(err, domain.ErrOrderDelivered) {
		c.logger.WarnContext(ctx, "order cancellation refused",
			slog.String("order_id", data.OrderID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", data.OrderID, err)
	}

	c.logger.InfoContext(ctx, "order cancelled from event",
		slog.String("order_id", data.OrderID),
		slog.Int("failed_compensations", domain.FailedSteps(res.Compensations)),
	)
	return nil
}
