package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/event"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

const vendorLookupConcurrency = 8

// CommissionService splits order revenue between vendors and the platform and
// keeps the commission ledger.
type CommissionService struct {
	store    repository.Store
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCommissionService creates a new commission service.
func NewCommissionService(store repository.Store, producer *event.Producer, logger *slog.Logger) *CommissionService {
	return &CommissionService{
		store:    store,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// vendorGroup is the revenue attributable to one vendor of an order.
type vendorGroup struct {
	vendorID string
	revenue  int64
}

// CalculateOrderCommissions computes per-vendor commissions for a paid order,
// appends them to the ledger and applies them to vendor counters. An order
// whose commissions are already computed is returned unchanged.
func (s *CommissionService) CalculateOrderCommissions(ctx context.Context, orderID string) (*domain.CommissionResult, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for commission: %w", err)
	}

	if order.CommissionStatus == domain.CommissionStatusComputed {
		CommissionCalculationsTotal.WithLabelValues("already_calculated").Inc()
		return s.existingResult(ctx, order)
	}
	if !order.IsSettled() {
		CommissionCalculationsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("calculate commissions for order %s: %w", orderID, appError(domain.ErrOrderNotSettled))
	}

	groups, skipped := groupByVendor(order.Items)
	vendors, missing, err := s.resolveVendors(ctx, groups)
	if err != nil {
		CommissionCalculationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve vendors: %w", err)
	}
	for _, item := range order.Items {
		if item.VendorID != "" && missing[item.VendorID] {
			skipped = append(skipped, domain.SkippedItem{ItemID: item.ID, ProductID: item.ProductID, Reason: "vendor not found"})
		}
	}
	for _, sk := range skipped {
		s.logger.WarnContext(ctx, "order item skipped for commission",
			slog.String("order_id", orderID),
			slog.String("item_id", sk.ItemID),
			slog.String("product_id", sk.ProductID),
			slog.String("reason", sk.Reason),
		)
	}

	result := &domain.CommissionResult{
		OrderID: orderID,
		Splits:  []domain.VendorSplit{},
		Skipped: skipped,
	}
	for _, g := range groups {
		v, ok := vendors[g.vendorID]
		if !ok {
			continue
		}
		commission := domain.ComputeCommission(g.revenue, v.CommissionRate)
		result.Splits = append(result.Splits, domain.VendorSplit{
			VendorID:   g.vendorID,
			Revenue:    g.revenue,
			Rate:       v.CommissionRate,
			Commission: commission,
			Payout:     g.revenue - commission,
		})
		result.TotalCommission += commission
	}
	if len(result.Splits) > 0 {
		result.PrimaryVendorID = result.Splits[0].VendorID
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		locked, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.CommissionStatus == domain.CommissionStatusComputed {
			result.AlreadyCalculated = true
			return nil
		}

		now := s.now()
		for _, split := range result.Splits {
			entry := &domain.CommissionEntry{
				ID:         uuid.New().String(),
				OrderID:    orderID,
				VendorID:   split.VendorID,
				Type:       domain.CommissionEntryAccrual,
				Revenue:    split.Revenue,
				Rate:       split.Rate,
				Commission: split.Commission,
				Payout:     split.Payout,
				CreatedAt:  now,
			}
			if err := tx.Commissions().Append(ctx, entry); err != nil {
				return fmt.Errorf("append commission entry: %w", err)
			}
			if err := tx.Vendors().UpdateSalesStats(ctx, split.VendorID, entry.StatsDelta()); err != nil {
				return fmt.Errorf("update vendor %s sales stats: %w", split.VendorID, err)
			}
		}

		locked.VendorCommission = result.TotalCommission
		locked.PlatformCommission = result.TotalCommission
		locked.VendorID = result.PrimaryVendorID
		locked.CommissionStatus = domain.CommissionStatusComputed
		locked.CommissionCalculatedAt = &now
		locked.UpdatedAt = now
		return tx.Orders().UpdateCommission(ctx, locked)
	})
	if err != nil {
		CommissionCalculationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("calculate commissions for order %s: %w", orderID, err)
	}
	if result.AlreadyCalculated {
		CommissionCalculationsTotal.WithLabelValues("already_calculated").Inc()
		order, err := s.store.Orders().GetByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("get order for commission: %w", err)
		}
		return s.existingResult(ctx, order)
	}
	CommissionCalculationsTotal.WithLabelValues("calculated").Inc()

	if err := s.producer.PublishCommissionCalculated(ctx, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish commission.calculated event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order commissions calculated",
		slog.String("order_id", orderID),
		slog.Int("vendors", len(result.Splits)),
		slog.Int("skipped_items", len(result.Skipped)),
		slog.Int64("total_commission", result.TotalCommission),
	)

	return result, nil
}

// existingResult rebuilds the result of a previous calculation from the ledger.
func (s *CommissionService) existingResult(ctx context.Context, order *domain.Order) (*domain.CommissionResult, error) {
	entries, err := s.store.Commissions().ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order commissions: %w", err)
	}
	return &domain.CommissionResult{
		OrderID:           order.ID,
		AlreadyCalculated: true,
		TotalCommission:   order.VendorCommission,
		PrimaryVendorID:   order.VendorID,
		Splits:            domain.SplitsFromLedger(entries),
	}, nil
}

// groupByVendor sums line revenue per vendor in order of first appearance.
// Items without a resolvable vendor are returned as skipped.
func groupByVendor(items []domain.OrderItem) ([]vendorGroup, []domain.SkippedItem) {
	var groups []vendorGroup
	index := make(map[string]int)
	var skipped []domain.SkippedItem

	for i := range items {
		item := &items[i]
		if item.VendorID == "" {
			skipped = append(skipped, domain.SkippedItem{ItemID: item.ID, ProductID: item.ProductID, Reason: "product or vendor not found"})
			continue
		}
		pos, ok := index[item.VendorID]
		if !ok {
			pos = len(groups)
			index[item.VendorID] = pos
			groups = append(groups, vendorGroup{vendorID: item.VendorID})
		}
		groups[pos].revenue += item.LineTotal()
	}
	return groups, skipped
}

// resolveVendors loads the vendors of an order concurrently. Vendors that no
// longer exist are reported in missing instead of failing the lookup.
func (s *CommissionService) resolveVendors(ctx context.Context, groups []vendorGroup) (map[string]*domain.Vendor, map[string]bool, error) {
	var mu sync.Mutex
	vendors := make(map[string]*domain.Vendor, len(groups))
	missing := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(vendorLookupConcurrency)
	for _, group := range groups {
		vendorID := group.vendorID
		g.Go(func() error {
			v, err := s.store.Vendors().GetByID(gctx, vendorID)
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, apperrors.ErrNotFound) {
				missing[vendorID] = true
				return nil
			}
			if err != nil {
				return fmt.Errorf("get vendor %s: %w", vendorID, err)
			}
			vendors[vendorID] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vendors, missing, nil
}

// ReverseOrderCommissions appends a reversal for every open accrual of the
// order, takes the amounts back out of vendor counters and marks the order
// reversed. It returns the reversal entries written.
func (s *CommissionService) ReverseOrderCommissions(ctx context.Context, orderID string) ([]domain.CommissionEntry, error) {
	var reversals []domain.CommissionEntry
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		entries, err := tx.Commissions().ListByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list order commissions: %w", err)
		}

		open := domain.OpenAccruals(entries)
		if len(open) == 0 && order.CommissionStatus != domain.CommissionStatusComputed {
			return nil
		}

		now := s.now()
		for i := range open {
			rev := open[i].Reversal()
			rev.ID = uuid.New().String()
			rev.CreatedAt = now
			if err := tx.Commissions().Append(ctx, rev); err != nil {
				return fmt.Errorf("append commission reversal: %w", err)
			}
			if err := tx.Vendors().UpdateSalesStats(ctx, rev.VendorID, rev.StatsDelta()); err != nil {
				return fmt.Errorf("reverse vendor %s sales stats: %w", rev.VendorID, err)
			}
			reversals = append(reversals, *rev)
		}

		order.VendorCommission = 0
		order.PlatformCommission = 0
		order.CommissionStatus = domain.CommissionStatusReversed
		order.CommissionCalculatedAt = nil
		order.UpdatedAt = now
		return tx.Orders().UpdateCommission(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("reverse commissions for order %s: %w", orderID, err)
	}
	if len(reversals) == 0 {
		return []domain.CommissionEntry{}, nil
	}

	if err := s.producer.PublishCommissionReversed(ctx, orderID, reversals); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish commission.reversed event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order commissions reversed",
		slog.String("order_id", orderID),
		slog.Int("entries", len(reversals)),
	)

	return reversals, nil
}

// RecalculateOrderCommissions reverses the current commissions of a paid
// order and computes them again from current vendor rates.
func (s *CommissionService) RecalculateOrderCommissions(ctx context.Context, orderID string) (*domain.CommissionResult, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for recalculation: %w", err)
	}
	if !order.IsSettled() {
		return nil, fmt.Errorf("recalculate commissions for order %s: %w", orderID, appError(domain.ErrOrderNotSettled))
	}

	if _, err := s.ReverseOrderCommissions(ctx, orderID); err != nil {
		return nil, err
	}
	return s.CalculateOrderCommissions(ctx, orderID)
}

// GetVendorLedger returns a vendor's ledger entries with totals folded from them.
func (s *CommissionService) GetVendorLedger(ctx context.Context, vendorID string) (*domain.VendorLedger, error) {
	vendor, err := s.store.Vendors().GetByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	entries, err := s.store.Commissions().ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list vendor commissions: %w", err)
	}
	return &domain.VendorLedger{
		Vendor:  vendor,
		Entries: entries,
		Totals:  domain.FoldLedger(entries),
	}, nil
}
