package memory

import (
	"context"
	"sort"
	"time"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(_ context.Context, h *domain.StockHistory) error {
	defer r.s.lock()()

	r.s.d.history = append(r.s.d.history, *h)
	return nil
}

func (r *historyRepo) ListByInventory(_ context.Context, inventoryID string, page, perPage int) ([]domain.StockHistory, int, error) {
	defer r.s.lock()()

	var matched []domain.StockHistory
	for i := len(r.s.d.history) - 1; i >= 0; i-- {
		if r.s.d.history[i].InventoryID == inventoryID {
			matched = append(matched, r.s.d.history[i])
		}
	}
	return paginate(matched, page, perPage), len(matched), nil
}

type alertRepo struct{ s *Store }

func (r *alertRepo) Create(_ context.Context, a *domain.StockAlert) error {
	defer r.s.lock()()

	r.s.d.alerts[a.ID] = *a
	return nil
}

func (r *alertRepo) GetByID(_ context.Context, id string) (*domain.StockAlert, error) {
	defer r.s.lock()()

	a, ok := r.s.d.alerts[id]
	if !ok {
		return nil, apperrors.NotFound("stock alert", id)
	}
	return &a, nil
}

func (r *alertRepo) HasActive(_ context.Context, inventoryID, alertType string) (bool, error) {
	defer r.s.lock()()

	for _, a := range r.s.d.alerts {
		if a.InventoryID == inventoryID && a.Type == alertType && a.Status == domain.AlertStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *alertRepo) ResolveActive(_ context.Context, inventoryID, alertType string, at time.Time) (int64, error) {
	defer r.s.lock()()

	var n int64
	for id, a := range r.s.d.alerts {
		if a.InventoryID == inventoryID && a.Type == alertType && a.Status == domain.AlertStatusActive {
			resolved := at
			a.Status = domain.AlertStatusResolved
			a.ResolvedAt = &resolved
			r.s.d.alerts[id] = a
			n++
		}
	}
	return n, nil
}

func (r *alertRepo) Update(_ context.Context, a *domain.StockAlert) error {
	defer r.s.lock()()

	stored, ok := r.s.d.alerts[a.ID]
	if !ok {
		return apperrors.NotFound("stock alert", a.ID)
	}
	stored.Status = a.Status
	stored.AcknowledgedBy = a.AcknowledgedBy
	stored.AcknowledgedAt = a.AcknowledgedAt
	stored.ResolvedAt = a.ResolvedAt
	r.s.d.alerts[a.ID] = stored
	return nil
}

func (r *alertRepo) List(_ context.Context, status string, page, perPage int) ([]domain.StockAlert, int, error) {
	defer r.s.lock()()

	var matched []domain.StockAlert
	for _, a := range r.s.d.alerts {
		if status == "" || a.Status == status {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, page, perPage), len(matched), nil
}
