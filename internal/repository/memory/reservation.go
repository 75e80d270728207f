package memory

import (
	"context"
	"sort"
	"time"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

type reservationRepo struct{ s *Store }

func (r *reservationRepo) Create(_ context.Context, res *domain.StockReservation) error {
	defer r.s.lock()()

	if _, ok := r.s.d.reservations[res.ID]; ok {
		return apperrors.AlreadyExists("reservation", "id", res.ID)
	}
	r.s.d.reservations[res.ID] = *res
	return nil
}

func (r *reservationRepo) GetByID(_ context.Context, id string) (*domain.StockReservation, error) {
	defer r.s.lock()()

	res, ok := r.s.d.reservations[id]
	if !ok {
		return nil, apperrors.NotFound("reservation", id)
	}
	return &res, nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, id string) (*domain.StockReservation, error) {
	return r.GetByID(ctx, id)
}

func (r *reservationRepo) ListByOrder(_ context.Context, orderID string) ([]domain.StockReservation, error) {
	defer r.s.lock()()

	list := []domain.StockReservation{}
	for _, res := range r.s.d.reservations {
		if res.OrderID == orderID {
			list = append(list, res)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *reservationRepo) ListExpiredActive(_ context.Context, now time.Time, after repository.ExpiryCursor, limit int) ([]domain.StockReservation, error) {
	defer r.s.lock()()

	if limit <= 0 {
		limit = 100
	}
	list := []domain.StockReservation{}
	for _, res := range r.s.d.reservations {
		if res.IsActive() && res.ExpiresAt.Before(now) && (after.IsZero() || expiresAfter(res, after)) {
			list = append(list, res)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return expiresAfter(list[j], repository.CursorAfter(list[i]))
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *reservationRepo) UpdateStatus(_ context.Context, res *domain.StockReservation) error {
	defer r.s.lock()()

	stored, ok := r.s.d.reservations[res.ID]
	if !ok {
		return apperrors.NotFound("reservation", res.ID)
	}
	stored.Status = res.Status
	stored.ConfirmedAt = res.ConfirmedAt
	stored.ReleasedAt = res.ReleasedAt
	stored.ReleaseReason = res.ReleaseReason
	r.s.d.reservations[res.ID] = stored
	return nil
}

func (r *reservationRepo) PurgeResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	defer r.s.lock()()

	var n int64
	for id, res := range r.s.d.reservations {
		if !res.IsActive() && res.CreatedAt.Before(cutoff) {
			delete(r.s.d.reservations, id)
			n++
		}
	}
	return n, nil
}

// expiresAfter orders reservations by (ExpiresAt, ID).
func expiresAfter(r domain.StockReservation, c repository.ExpiryCursor) bool {
	if !r.ExpiresAt.Equal(c.ExpiresAt) {
		return r.ExpiresAt.After(c.ExpiresAt)
	}
	return r.ID > c.ID
}
