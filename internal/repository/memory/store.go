// Package memory is an in-process repository.Store used by the memory storage
// driver and by service and handler tests.
package memory

import (
	"context"
	"sync"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
)

type data struct {
	inventories  map[string]domain.Inventory
	transactions []domain.StockTransaction
	reservations map[string]domain.StockReservation
	history      []domain.StockHistory
	alerts       map[string]domain.StockAlert
	orders       map[string]domain.Order
	vendors      map[string]domain.Vendor
	commissions  []domain.CommissionEntry
	refunds      []domain.Refund
}

func newData() *data {
	return &data{
		inventories:  make(map[string]domain.Inventory),
		reservations: make(map[string]domain.StockReservation),
		alerts:       make(map[string]domain.StockAlert),
		orders:       make(map[string]domain.Order),
		vendors:      make(map[string]domain.Vendor),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.inventories {
		c.inventories[k] = v
	}
	for k, v := range d.reservations {
		c.reservations[k] = v
	}
	for k, v := range d.alerts {
		c.alerts[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range d.vendors {
		c.vendors[k] = v
	}
	c.transactions = append([]domain.StockTransaction(nil), d.transactions...)
	c.history = append([]domain.StockHistory(nil), d.history...)
	c.commissions = append([]domain.CommissionEntry(nil), d.commissions...)
	c.refunds = append([]domain.Refund(nil), d.refunds...)
	return c
}

// restore copies every collection of snap back into d in place so that
// repositories holding d observe the rollback.
func (d *data) restore(snap *data) {
	*d = *snap
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

// Store implements repository.Store in memory. Transactions are serialized
// and rolled back by restoring a snapshot taken when they began.
type Store struct {
	d    *data
	mu   *sync.Mutex
	inTx bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{d: newData(), mu: &sync.Mutex{}}
}

// lock serializes access outside a transaction. Inside WithinTx the
// transaction already holds the mutex.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Inventories() repository.InventoryRepository { return &inventoryRepo{s} }
func (s *Store) Reservations() repository.ReservationRepository { return &reservationRepo{s} }
func (s *Store) History() repository.StockHistoryRepository { return &historyRepo{s} }
func (s *Store) Alerts() repository.StockAlertRepository { return &alertRepo{s} }
func (s *Store) Orders() repository.OrderRepository { return &orderRepo{s} }
func (s *Store) Vendors() repository.VendorRepository { return &vendorRepo{s} }
func (s *Store) Commissions() repository.CommissionRepository { return &commissionRepo{s} }
func (s *Store) Refunds() repository.RefundRepository { return &refundRepo{s} }

// WithinTx runs fn with exclusive access to the store. Any error restores the
// state that existed before fn ran.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.lock()
	defer unlock()

	snap := s.d.clone()
	tx := &Store{d: s.d, mu: s.mu, inTx: true}
	if err := fn(tx); err != nil {
		s.d.restore(snap)
		return err
	}
	return nil
}

// PutOrder stores an order with its items. Orders are owned by the order
// service; this seeds them for the memory driver and tests.
func (s *Store) PutOrder(o *domain.Order) {
	defer s.lock()()
	if o.CommissionStatus == "" {
		o.CommissionStatus = domain.CommissionStatusUncomputed
	}
	s.d.orders[o.ID] = cloneOrder(*o)
}

// PutVendor stores a vendor.
func (s *Store) PutVendor(v *domain.Vendor) {
	defer s.lock()()
	s.d.vendors[v.ID] = *v
}
