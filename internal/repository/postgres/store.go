package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/amadile/Shopping-site-sub001/internal/repository"
	"github.com/amadile/Shopping-site-sub001/pkg/database"
)

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Store implements repository.Store on PostgreSQL. A Store built on a pgx.Tx
// routes every repository through that transaction.
type Store struct {
	db database.DBTX
}

// NewStore creates a PostgreSQL-backed store.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Inventories() repository.InventoryRepository {
	return NewInventoryRepository(s.db)
}

func (s *Store) Reservations() repository.ReservationRepository {
	return NewReservationRepository(s.db)
}

func (s *Store) History() repository.StockHistoryRepository {
	return NewStockHistoryRepository(s.db)
}

func (s *Store) Alerts() repository.StockAlertRepository {
	return NewStockAlertRepository(s.db)
}

func (s *Store) Orders() repository.OrderRepository {
	return NewOrderRepository(s.db)
}

func (s *Store) Vendors() repository.VendorRepository {
	return NewVendorRepository(s.db)
}

func (s *Store) Commissions() repository.CommissionRepository {
	return NewCommissionRepository(s.db)
}

func (s *Store) Refunds() repository.RefundRepository {
	return NewRefundRepository(s.db)
}

// WithinTx runs fn inside a transaction. Nested calls open savepoints.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return database.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
}

// isUniqueViolation reports a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// normalizePage clamps pagination arguments and returns the row offset.
func normalizePage(page, perPage int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	return page, perPage, (page - 1) * perPage
}
