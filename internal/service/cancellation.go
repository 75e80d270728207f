package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/event"
	"github.com/amadile/Shopping-site-sub001/internal/refund"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

const (
	defaultCancellationReason = "No reason provided"
	restockReasonCancelled    = "Order cancelled"
	defaultStatsWindow        = 30 * 24 * time.Hour
)

// CancelOrderInput describes a cancellation request.
type CancelOrderInput struct {
	OrderID string
	UserID  string
	Reason  string
	IsAdmin bool
}

// CancellationService cancels orders and runs the compensating steps.
type CancellationService struct {
	store       repository.Store
	inventory   *InventoryService
	commissions *CommissionService
	refunds     refund.Provider
	producer    *event.Producer
	logger      *slog.Logger
	statsWindow time.Duration
	now         func() time.Time
}

// NewCancellationService creates a new cancellation service.
func NewCancellationService(
	store repository.Store,
	inventory *InventoryService,
	commissions *CommissionService,
	refunds refund.Provider,
	producer *event.Producer,
	logger *slog.Logger,
	statsWindow time.Duration,
) *CancellationService {
	if statsWindow <= 0 {
		statsWindow = defaultStatsWindow
	}
	return &CancellationService{
		store:       store,
		inventory:   inventory,
		commissions: commissions,
		refunds:     refunds,
		producer:    producer,
		logger:      logger,
		statsWindow: statsWindow,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CancelOrder cancels an order and then runs each compensation independently:
// refund of a paid order, restoration of deducted stock, release of open
// holds and reversal of computed commissions. A failed compensation is
// reported in the result and does not undo the cancellation.
func (s *CancellationService) CancelOrder(ctx context.Context, in CancelOrderInput) (*domain.CancellationResult, error) {
	if in.OrderID == "" {
		return nil, apperrors.InvalidInput("order_id is required")
	}
	reason := in.Reason
	if reason == "" {
		reason = defaultCancellationReason
	}

	var (
		order    *domain.Order
		previous domain.Order
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if err := order.CheckCancellable(in.IsAdmin); err != nil {
			return err
		}
		if !in.IsAdmin && order.UserID != in.UserID {
			return domain.ErrOrderNotOwned
		}

		previous = *order
		order.Cancel(reason, in.UserID, s.now())
		return tx.Orders().UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", appError(err))
	}

	result := &domain.CancellationResult{
		Success:       true,
		Order:         order,
		Compensations: []domain.StepResult{},
	}

	if previous.Status == domain.OrderStatusPaid {
		ref, step := s.raiseRefund(ctx, order, reason)
		result.Refund = ref
		result.Compensations = append(result.Compensations, step)
	}

	result.Compensations = append(result.Compensations, s.restoreStock(ctx, &previous, in.UserID)...)

	released, err := s.inventory.ReleaseOrderReservations(ctx, order.ID, restockReasonCancelled, in.UserID)
	if err != nil {
		result.Compensations = append(result.Compensations, domain.NewStepResult(domain.StepReleaseReservation, order.ID, err))
	} else {
		result.Compensations = append(result.Compensations, released...)
	}

	if previous.CommissionStatus == domain.CommissionStatusComputed {
		_, err := s.commissions.ReverseOrderCommissions(ctx, order.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to reverse commissions of cancelled order",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
		result.Compensations = append(result.Compensations, domain.NewStepResult(domain.StepReverseCommission, order.ID, err))
	}

	recordStepFailures(result.Compensations)
	failed := domain.FailedSteps(result.Compensations)
	result.Message = "Order cancelled successfully"
	if failed > 0 {
		result.Message = fmt.Sprintf("Order cancelled with %d failed compensation steps", failed)
	}

	if err := s.producer.PublishOrderCancelled(ctx, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.cancelled event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", order.ID),
		slog.String("previous_status", previous.Status),
		slog.String("cancelled_by", in.UserID),
		slog.Int("compensations", len(result.Compensations)),
		slog.Int("failed_compensations", failed),
	)

	return result, nil
}

// raiseRefund submits and records the refund of a paid order.
func (s *CancellationService) raiseRefund(ctx context.Context, order *domain.Order, reason string) (*domain.Refund, domain.StepResult) {
	ref := &domain.Refund{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		Amount:    order.TotalAmount,
		Currency:  order.Currency,
		Status:    domain.RefundStatusPending,
		Reason:    reason,
		CreatedAt: s.now(),
	}

	providerRef, err := s.refunds.Refund(ctx, refund.Request{
		RefundID: ref.ID,
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Reason:   reason,
	})
	if err != nil {
		ref.Status = domain.RefundStatusFailed
		s.logger.ErrorContext(ctx, "refund provider rejected refund",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	} else {
		ref.ProviderRef = providerRef
	}

	if createErr := s.store.Refunds().Create(ctx, ref); createErr != nil {
		s.logger.ErrorContext(ctx, "failed to persist refund",
			slog.String("order_id", order.ID),
			slog.String("error", createErr.Error()),
		)
		if err == nil {
			err = createErr
		}
	}
	return ref, domain.NewStepResult(domain.StepRefund, ref.ID, err)
}

// restoreStock returns stock that was actually deducted for the order. Stock
// was deducted by confirmed reservations; an order that reached payment
// without any reservation had its items deducted directly.
func (s *CancellationService) restoreStock(ctx context.Context, order *domain.Order, actor string) []domain.StepResult {
	results := []domain.StepResult{}

	reservations, err := s.store.Reservations().ListByOrder(ctx, order.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list reservations for stock restoration",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		return append(results, domain.NewStepResult(domain.StepRestoreStock, order.ID, err))
	}

	if len(reservations) == 0 {
		if !order.StockDeducted() {
			return results
		}
		for i := range order.Items {
			item := &order.Items[i]
			err := s.restoreItem(ctx, order.ID, item.ProductID, item.VariantID, item.Quantity, actor)
			results = append(results, domain.NewStepResult(domain.StepRestoreStock, item.ID, err))
		}
		return results
	}

	for i := range reservations {
		res := &reservations[i]
		if res.Status != domain.ReservationStatusConfirmed {
			continue
		}
		_, err := s.inventory.addStock(ctx, res.InventoryID, res.Quantity, order.ID, actor, restockReasonCancelled)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to restore stock of confirmed reservation",
				slog.String("order_id", order.ID),
				slog.String("reservation_id", res.ID),
				slog.String("error", err.Error()),
			)
		}
		results = append(results, domain.NewStepResult(domain.StepRestoreStock, res.ID, err))
	}
	return results
}

func (s *CancellationService) restoreItem(ctx context.Context, orderID, productID, variantID string, quantity int, actor string) error {
	inv, err := s.store.Inventories().GetByProductVariant(ctx, productID, variantID)
	if err == nil {
		_, err = s.inventory.addStock(ctx, inv.ID, quantity, orderID, actor, restockReasonCancelled)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to restore stock of order item",
			slog.String("order_id", orderID),
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	return err
}

// CanCancelOrder evaluates the cancellation gate without changing anything.
func (s *CancellationService) CanCancelOrder(ctx context.Context, orderID, userID string, isAdmin bool) (*domain.CancelEligibility, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	result := &domain.CancelEligibility{CanCancel: true, Status: order.Status}
	if err := order.CheckCancellable(isAdmin); err != nil {
		result.CanCancel = false
		result.Reason = err.Error()
		return result, nil
	}
	if !isAdmin && order.UserID != userID {
		result.CanCancel = false
		result.Reason = domain.ErrOrderNotOwned.Error()
	}
	return result, nil
}

// GetCancellationStats aggregates cancelled orders in [start, end]. Missing
// bounds default to the trailing stats window ending now.
func (s *CancellationService) GetCancellationStats(ctx context.Context, start, end *time.Time) (*domain.CancellationStats, error) {
	to := s.now()
	if end != nil {
		to = end.UTC()
	}
	from := to.Add(-s.statsWindow)
	if start != nil {
		from = start.UTC()
	}
	if from.After(to) {
		return nil, apperrors.InvalidInput("start date must not be after end date")
	}

	stats, err := s.store.Orders().CancellationStats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get cancellation stats: %w", err)
	}
	return stats, nil
}

// CancelOnRequest cancels an order on behalf of another service. The request
// carries administrator rights so shipped orders can be cancelled.
func (s *CancellationService) CancelOnRequest(ctx context.Context, orderID, requestedBy, reason string) (*domain.CancellationResult, error) {
	return s.CancelOrder(ctx, CancelOrderInput{
		OrderID: orderID,
		UserID:  requestedBy,
		Reason:  reason,
		IsAdmin: true,
	})
}
