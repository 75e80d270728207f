package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

// SettlementService applies a captured payment to an order.
type SettlementService struct {
	store       repository.Store
	inventory   *InventoryService
	commissions *CommissionService
	logger      *slog.Logger
	now         func() time.Time
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(store repository.Store, inventory *InventoryService, commissions *CommissionService, logger *slog.Logger) *SettlementService {
	return &SettlementService{
		store:       store,
		inventory:   inventory,
		commissions: commissions,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SettlePayment marks a pending order paid, confirms its open reservations
// and calculates its commissions. Replaying it for a paid order only retries
// the steps that have not happened yet. Commission failures are reported in
// the step results rather than returned.
func (s *SettlementService) SettlePayment(ctx context.Context, orderID, actor string) (*domain.SettlementResult, error) {
	if orderID == "" {
		return nil, apperrors.InvalidInput("order_id is required")
	}

	var (
		order  *domain.Order
		marked bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		marked, err = order.MarkPaid(s.now())
		if err != nil {
			return err
		}
		if !marked {
			return nil
		}
		return tx.Orders().UpdateStatus(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("settle payment: %w", appError(err))
	}

	result := &domain.SettlementResult{
		Order:      order,
		MarkedPaid: marked,
		Steps:      []domain.StepResult{},
	}

	confirmed, err := s.inventory.ConfirmOrderReservations(ctx, orderID, actor)
	if err != nil {
		result.Steps = append(result.Steps, domain.NewStepResult(domain.StepConfirmReservation, orderID, err))
	} else {
		result.Steps = append(result.Steps, confirmed...)
	}

	commissions, err := s.commissions.CalculateOrderCommissions(ctx, orderID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to calculate commissions after payment",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
	result.Commissions = commissions
	result.Steps = append(result.Steps, domain.NewStepResult(domain.StepCalculateCommission, orderID, err))

	recordStepFailures(result.Steps)

	s.logger.InfoContext(ctx, "payment settled",
		slog.String("order_id", orderID),
		slog.Bool("marked_paid", marked),
		slog.Int("steps", len(result.Steps)),
		slog.Int("failed_steps", domain.FailedSteps(result.Steps)),
	)

	return result, nil
}
