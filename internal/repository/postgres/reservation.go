package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

const reservationColumns = `id, inventory_id, product_id, variant_id, quantity, user_id, order_id, status,
	expires_at, confirmed_at, released_at, release_reason, created_at`

// ReservationRepository implements repository.ReservationRepository using PostgreSQL.
type ReservationRepository struct {
	db database.DBTX
}

// NewReservationRepository creates a new PostgreSQL-backed reservation repository.
func NewReservationRepository(db database.DBTX) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func scanReservation(row scanner) (*domain.StockReservation, error) {
	var r domain.StockReservation
	err := row.Scan(
		&r.ID,
		&r.InventoryID,
		&r.ProductID,
		&r.VariantID,
		&r.Quantity,
		&r.UserID,
		&r.OrderID,
		&r.Status,
		&r.ExpiresAt,
		&r.ConfirmedAt,
		&r.ReleasedAt,
		&r.ReleaseReason,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReservations(rows pgx.Rows) ([]domain.StockReservation, error) {
	defer rows.Close()

	reservations := []domain.StockReservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}
	return reservations, nil
}

// Create inserts a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.StockReservation) error {
	query := `
		INSERT INTO stock_reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		res.ID,
		res.InventoryID,
		res.ProductID,
		res.VariantID,
		res.Quantity,
		res.UserID,
		res.OrderID,
		res.Status,
		res.ExpiresAt,
		res.ConfirmedAt,
		res.ReleasedAt,
		res.ReleaseReason,
		res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation by id.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.StockReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM stock_reservations WHERE id = $1`

	res, err := scanReservation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("reservation", id)
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}
	return res, nil
}

// GetForUpdate retrieves a reservation and locks its row.
func (r *ReservationRepository) GetForUpdate(ctx context.Context, id string) (res *domain.StockReservation, err error) {
	query := `SELECT ` + reservationColumns + ` FROM stock_reservations WHERE id = $1 FOR UPDATE`

	res, err = scanReservation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("reservation", id)
		}
		return nil, fmt.Errorf("lock reservation: %w", err)
	}
	return res, nil
}

// ListByOrder returns every reservation tied to an order, oldest first.
func (r *ReservationRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.StockReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM stock_reservations WHERE order_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list reservations by order: %w", err)
	}
	return collectReservations(rows)
}

// ListExpiredActive returns up to limit active reservations that expired
// before now, keyset-paged on (expires_at, id).
func (r *ReservationRepository) ListExpiredActive(ctx context.Context, now time.Time, after repository.ExpiryCursor, limit int) ([]domain.StockReservation, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + reservationColumns + `
		FROM stock_reservations
		WHERE status = 'active' AND expires_at < $1
		ORDER BY expires_at ASC, id ASC
		LIMIT $2`
	args := []any{now, limit}
	if !after.IsZero() {
		query = `
		SELECT ` + reservationColumns + `
		FROM stock_reservations
		WHERE status = 'active' AND expires_at < $1 AND (expires_at, id) > ($2, $3)
		ORDER BY expires_at ASC, id ASC
		LIMIT $4`
		args = []any{now, after.ExpiresAt, after.ID, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	return collectReservations(rows)
}

// UpdateStatus persists status, timestamps and release reason.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, res *domain.StockReservation) error {
	query := `
		UPDATE stock_reservations
		SET status = $1, confirmed_at = $2, released_at = $3, release_reason = $4
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query, res.Status, res.ConfirmedAt, res.ReleasedAt, res.ReleaseReason, res.ID)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("reservation", res.ID)
	}
	return nil
}

// PurgeResolvedBefore deletes non-active reservations created before cutoff.
func (r *ReservationRepository) PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM stock_reservations WHERE status <> 'active' AND created_at < $1`

	ct, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reservations: %w", err)
	}
	return ct.RowsAffected(), nil
}
