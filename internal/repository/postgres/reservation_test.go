package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
)

var reservationCols = []string{
	"id", "inventory_id", "product_id", "variant_id", "quantity", "user_id", "order_id", "status",
	"expires_at", "confirmed_at", "released_at", "release_reason", "created_at",
}

func setupReservationRepo(t *testing.T) (*ReservationRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewReservationRepository(mock), mock
}

func sampleReservation() domain.StockReservation {
	return domain.StockReservation{
		ID:          "res-1",
		InventoryID: "inv-1",
		ProductID:   "prod-1",
		Quantity:    3,
		UserID:      "user-1",
		OrderID:     "order-1",
		Status:      domain.ReservationStatusActive,
		ExpiresAt:   time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC),
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func reservationRow(r domain.StockReservation) []any {
	return []any{
		r.ID, r.InventoryID, r.ProductID, r.VariantID, r.Quantity, r.UserID, r.OrderID, r.Status,
		r.ExpiresAt, r.ConfirmedAt, r.ReleasedAt, r.ReleaseReason, r.CreatedAt,
	}
}

func TestReservationRepository_Create(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	r := sampleReservation()
	mock.ExpectExec("INSERT INTO stock_reservations").
		WithArgs(reservationRow(r)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), &r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM stock_reservations WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	r, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, r)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_GetForUpdate(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	r := sampleReservation()
	mock.ExpectQuery("SELECT .+ FROM stock_reservations WHERE id = \\$1 FOR UPDATE").
		WithArgs(r.ID).
		WillReturnRows(pgxmock.NewRows(reservationCols).AddRow(reservationRow(r)...))

	got, err := repo.GetForUpdate(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.True(t, got.IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_ListExpiredActive(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	now := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	r := sampleReservation()
	mock.ExpectQuery("SELECT .+ FROM stock_reservations WHERE status = 'active' AND expires_at").
		WithArgs(now, 100).
		WillReturnRows(pgxmock.NewRows(reservationCols).AddRow(reservationRow(r)...))

	expired, err := repo.ListExpiredActive(context.Background(), now, repository.ExpiryCursor{}, 0)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, r.ID, expired[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_ListExpiredActive_AfterCursor(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	now := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	after := repository.ExpiryCursor{
		ExpiresAt: now.Add(-time.Minute),
		ID:        "5f0e7c1a-0000-4000-8000-000000000001",
	}
	mock.ExpectQuery(`SELECT .+ FROM stock_reservations WHERE status = 'active' AND expires_at < \$1 AND \(expires_at, id\) > \(\$2, \$3\) ORDER BY expires_at ASC, id ASC LIMIT \$4`).
		WithArgs(now, after.ExpiresAt, after.ID, 2).
		WillReturnRows(pgxmock.NewRows(reservationCols))

	expired, err := repo.ListExpiredActive(context.Background(), now, after, 2)
	require.NoError(t, err)
	assert.Empty(t, expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_ListByOrder_Empty(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM stock_reservations WHERE order_id").
		WithArgs("order-9").
		WillReturnRows(pgxmock.NewRows(reservationCols))

	list, err := repo.ListByOrder(context.Background(), "order-9")
	require.NoError(t, err)
	assert.Equal(t, []domain.StockReservation{}, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_UpdateStatus(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	r := sampleReservation()
	r.Release(time.Date(2025, 1, 1, 0, 20, 0, 0, time.UTC), domain.ReleaseReasonExpired)
	mock.ExpectExec("UPDATE stock_reservations").
		WithArgs(domain.ReservationStatusReleased, r.ConfirmedAt, r.ReleasedAt, domain.ReleaseReasonExpired, r.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateStatus(context.Background(), &r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_PurgeResolvedBefore(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	cutoff := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM stock_reservations WHERE status <> 'active'").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := repo.PurgeResolvedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_PurgeResolvedBefore_Error(t *testing.T) {
	repo, mock := setupReservationRepo(t)
	defer mock.Close()

	cutoff := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM stock_reservations").
		WithArgs(cutoff).
		WillReturnError(errors.New("disk full"))

	_, err := repo.PurgeResolvedBefore(context.Background(), cutoff)
	assert.Contains(t, err.Error(), "purge reservations")
	assert.NoError(t, mock.ExpectationsWereMet())
}
