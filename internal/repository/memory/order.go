package memory

import (
	"context"
	"time"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

type orderRepo struct{ s *Store }

func (r *orderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	defer r.s.lock()()

	o, ok := r.s.d.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	o = cloneOrder(o)
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	for i := range o.Items {
		if _, ok := r.s.d.vendors[o.Items[i].VendorID]; !ok {
			o.Items[i].VendorID = ""
		}
	}
	return &o, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepo) UpdateStatus(_ context.Context, o *domain.Order) error {
	defer r.s.lock()()

	stored, ok := r.s.d.orders[o.ID]
	if !ok {
		return apperrors.NotFound("order", o.ID)
	}
	stored.Status = o.Status
	stored.CancellationReason = o.CancellationReason
	stored.CancelledAt = o.CancelledAt
	stored.CancelledBy = o.CancelledBy
	stored.PaidAt = o.PaidAt
	stored.UpdatedAt = o.UpdatedAt
	r.s.d.orders[o.ID] = stored
	return nil
}

func (r *orderRepo) UpdateCommission(_ context.Context, o *domain.Order) error {
	defer r.s.lock()()

	stored, ok := r.s.d.orders[o.ID]
	if !ok {
		return apperrors.NotFound("order", o.ID)
	}
	stored.VendorCommission = o.VendorCommission
	stored.PlatformCommission = o.PlatformCommission
	stored.VendorID = o.VendorID
	stored.CommissionStatus = o.CommissionStatus
	stored.CommissionCalculatedAt = o.CommissionCalculatedAt
	stored.UpdatedAt = o.UpdatedAt
	r.s.d.orders[o.ID] = stored
	return nil
}

func (r *orderRepo) CancellationStats(_ context.Context, from, to time.Time) (*domain.CancellationStats, error) {
	defer r.s.lock()()

	stats := &domain.CancellationStats{From: from, To: to}
	for _, o := range r.s.d.orders {
		if o.Status != domain.OrderStatusCancelled || o.CancelledAt == nil {
			continue
		}
		if o.CancelledAt.Before(from) || o.CancelledAt.After(to) {
			continue
		}
		stats.Count++
		stats.TotalAmount += o.TotalAmount
	}
	if stats.Count > 0 {
		stats.AverageAmount = stats.TotalAmount / int64(stats.Count)
	}
	return stats, nil
}

type vendorRepo struct{ s *Store }

func (r *vendorRepo) GetByID(_ context.Context, id string) (*domain.Vendor, error) {
	defer r.s.lock()()

	v, ok := r.s.d.vendors[id]
	if !ok {
		return nil, apperrors.NotFound("vendor", id)
	}
	return &v, nil
}

func (r *vendorRepo) UpdateSalesStats(_ context.Context, vendorID string, delta domain.SalesStatsDelta) error {
	defer r.s.lock()()

	v, ok := r.s.d.vendors[vendorID]
	if !ok {
		return apperrors.NotFound("vendor", vendorID)
	}
	v.Apply(delta)
	v.UpdatedAt = time.Now().UTC()
	r.s.d.vendors[vendorID] = v
	return nil
}

type commissionRepo struct{ s *Store }

func (r *commissionRepo) Append(_ context.Context, e *domain.CommissionEntry) error {
	defer r.s.lock()()

	if e.ReversesID != "" {
		for _, existing := range r.s.d.commissions {
			if existing.ReversesID == e.ReversesID {
				return apperrors.AlreadyExists("commission reversal", "reverses_id", e.ReversesID)
			}
		}
	}
	r.s.d.commissions = append(r.s.d.commissions, *e)
	return nil
}

func (r *commissionRepo) ListByOrder(_ context.Context, orderID string) ([]domain.CommissionEntry, error) {
	defer r.s.lock()()

	entries := []domain.CommissionEntry{}
	for _, e := range r.s.d.commissions {
		if e.OrderID == orderID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *commissionRepo) ListByVendor(_ context.Context, vendorID string) ([]domain.CommissionEntry, error) {
	defer r.s.lock()()

	entries := []domain.CommissionEntry{}
	for _, e := range r.s.d.commissions {
		if e.VendorID == vendorID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

type refundRepo struct{ s *Store }

func (r *refundRepo) Create(_ context.Context, ref *domain.Refund) error {
	defer r.s.lock()()

	r.s.d.refunds = append(r.s.d.refunds, *ref)
	return nil
}

func (r *refundRepo) GetByOrder(_ context.Context, orderID string) (*domain.Refund, error) {
	defer r.s.lock()()

	for i := len(r.s.d.refunds) - 1; i >= 0; i-- {
		if r.s.d.refunds[i].OrderID == orderID {
			ref := r.s.d.refunds[i]
			return &ref, nil
		}
	}
	return nil, apperrors.NotFound("refund", orderID)
}
