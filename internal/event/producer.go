package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	pkgkafka "github.com/amadile/Shopping-site-sub001/pkg/kafka"
	"github.com/amadile/Shopping-site-sub001/pkg/logger"
)

// Kafka topics produced by the marketplace inventory service.
const (
	TopicInventoryUpdated     = "ecommerce.inventory.updated"
	TopicInventoryReserved    = "ecommerce.inventory.reserved"
	TopicInventoryReleased    = "ecommerce.inventory.released"
	TopicInventoryConfirmed   = "ecommerce.inventory.confirmed"
	TopicInventoryLowStock    = "ecommerce.inventory.low_stock"
	TopicOrderCancelled       = "ecommerce.order.cancelled"
	TopicCommissionCalculated = "ecommerce.commission.calculated"
	TopicCommissionReversed   = "ecommerce.commission.reversed"
)

// Aggregate type constants.
const (
	AggregateTypeInventory = "inventory"
	AggregateTypeOrder     = "order"
)

// SourceInventoryService identifies events originating from this service.
const SourceInventoryService = "inventory-service"

// InventoryUpdatedData is the payload for an inventory.updated event.
type InventoryUpdatedData struct {
	InventoryID string `json:"inventory_id"`
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	SKU         string `json:"sku"`
	Current     int    `json:"current_stock"`
	Reserved    int    `json:"reserved_stock"`
	Available   int    `json:"available_stock"`
	Change      string `json:"change"`
}

// ReservationData is the payload for inventory.reserved, inventory.released
// and inventory.confirmed events.
type ReservationData struct {
	ReservationID string `json:"reservation_id"`
	InventoryID   string `json:"inventory_id"`
	ProductID     string `json:"product_id"`
	VariantID     string `json:"variant_id,omitempty"`
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Quantity      int    `json:"quantity"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// InventoryLowStockData is the payload for an inventory.low_stock event.
type InventoryLowStockData struct {
	InventoryID       string `json:"inventory_id"`
	ProductID         string `json:"product_id"`
	VariantID         string `json:"variant_id,omitempty"`
	SKU               string `json:"sku"`
	AlertType         string `json:"alert_type"`
	Available         int    `json:"available"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// OrderCancelledData is the payload for an order.cancelled event.
type OrderCancelledData struct {
	OrderID            string `json:"order_id"`
	UserID             string `json:"user_id"`
	CancelledBy        string `json:"cancelled_by"`
	Reason             string `json:"reason"`
	TotalAmount        int64  `json:"total_amount"`
	RefundID           string `json:"refund_id,omitempty"`
	FailedCompensation int    `json:"failed_compensations"`
}

// CommissionCalculatedData is the payload for a commission.calculated event.
type CommissionCalculatedData struct {
	OrderID         string               `json:"order_id"`
	TotalCommission int64                `json:"total_commission"`
	Splits          []domain.VendorSplit `json:"splits"`
}

// CommissionReversedData is the payload for a commission.reversed event.
type CommissionReversedData struct {
	OrderID   string   `json:"order_id"`
	VendorIDs []string `json:"vendor_ids"`
	Reversed  int64    `json:"reversed_commission"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceInventoryService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishInventoryUpdated publishes an inventory.updated event.
func (p *Producer) PublishInventoryUpdated(ctx context.Context, inv *domain.Inventory, change string) error {
	return p.publish(ctx, TopicInventoryUpdated, inv.ProductID, AggregateTypeInventory, InventoryUpdatedData{
		InventoryID: inv.ID,
		ProductID:   inv.ProductID,
		VariantID:   inv.VariantID,
		SKU:         inv.SKU,
		Current:     inv.CurrentStock,
		Reserved:    inv.ReservedStock,
		Available:   inv.AvailableStock,
		Change:      change,
	})
}

func reservationData(r *domain.StockReservation) ReservationData {
	return ReservationData{
		ReservationID: r.ID,
		InventoryID:   r.InventoryID,
		ProductID:     r.ProductID,
		VariantID:     r.VariantID,
		OrderID:       r.OrderID,
		UserID:        r.UserID,
		Quantity:      r.Quantity,
		Status:        r.Status,
		Reason:        r.ReleaseReason,
	}
}

// PublishInventoryReserved publishes an inventory.reserved event.
func (p *Producer) PublishInventoryReserved(ctx context.Context, r *domain.StockReservation) error {
	return p.publish(ctx, TopicInventoryReserved, r.ProductID, AggregateTypeInventory, reservationData(r))
}

// PublishInventoryReleased publishes an inventory.released event.
func (p *Producer) PublishInventoryReleased(ctx context.Context, r *domain.StockReservation) error {
	return p.publish(ctx, TopicInventoryReleased, r.ProductID, AggregateTypeInventory, reservationData(r))
}

// PublishInventoryConfirmed publishes an inventory.confirmed event.
func (p *Producer) PublishInventoryConfirmed(ctx context.Context, r *domain.StockReservation) error {
	return p.publish(ctx, TopicInventoryConfirmed, r.ProductID, AggregateTypeInventory, reservationData(r))
}

// PublishInventoryLowStock publishes an inventory.low_stock event.
func (p *Producer) PublishInventoryLowStock(ctx context.Context, inv *domain.Inventory, alertType string) error {
	return p.publish(ctx, TopicInventoryLowStock, inv.ProductID, AggregateTypeInventory, InventoryLowStockData{
		InventoryID:       inv.ID,
		ProductID:         inv.ProductID,
		VariantID:         inv.VariantID,
		SKU:               inv.SKU,
		AlertType:         alertType,
		Available:         inv.AvailableStock,
		LowStockThreshold: inv.LowStockThreshold,
	})
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, res *domain.CancellationResult) error {
	o := res.Order
	data := OrderCancelledData{
		OrderID:            o.ID,
		UserID:             o.UserID,
		CancelledBy:        o.CancelledBy,
		Reason:             o.CancellationReason,
		TotalAmount:        o.TotalAmount,
		FailedCompensation: domain.FailedSteps(res.Compensations),
	}
	if res.Refund != nil {
		data.RefundID = res.Refund.ID
	}
	return p.publish(ctx, TopicOrderCancelled, o.ID, AggregateTypeOrder, data)
}

// PublishCommissionCalculated publishes a commission.calculated event.
func (p *Producer) PublishCommissionCalculated(ctx context.Context, res *domain.CommissionResult) error {
	return p.publish(ctx, TopicCommissionCalculated, res.OrderID, AggregateTypeOrder, CommissionCalculatedData{
		OrderID:         res.OrderID,
		TotalCommission: res.TotalCommission,
		Splits:          res.Splits,
	})
}

// PublishCommissionReversed publishes a commission.reversed event for the given reversal entries.
func (p *Producer) PublishCommissionReversed(ctx context.Context, orderID string, reversals []domain.CommissionEntry) error {
	data := CommissionReversedData{OrderID: orderID, VendorIDs: []string{}}
	for _, e := range reversals {
		data.VendorIDs = append(data.VendorIDs, e.VendorID)
		data.Reversed += e.Commission
	}
	return p.publish(ctx, TopicCommissionReversed, orderID, AggregateTypeOrder, data)
}

// LogPublisher stands in for Kafka when it is disabled. Events are logged at
// debug level and dropped.
type LogPublisher struct {
	Logger *slog.Logger
}

// Publish logs the event.
func (p LogPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	p.Logger.DebugContext(ctx, "kafka disabled, event dropped",
		slog.String("topic", topic),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}
