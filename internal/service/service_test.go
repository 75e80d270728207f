package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/event"
	"github.com/amadile/Shopping-site-sub001/internal/refund"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	"github.com/amadile/Shopping-site-sub001/internal/repository/memory"
	pkgkafka "github.com/amadile/Shopping-site-sub001/pkg/kafka"
)

// --- Test Helpers ---

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type failingRefunds struct{ err error }

func (f failingRefunds) Refund(context.Context, refund.Request) (string, error) {
	return "", f.err
}

var errInventoryUnavailable = errors.New("inventory row unavailable")

// faultyStore fails every lock on one inventory record, inside and outside
// transactions, and passes everything else through.
type faultyStore struct {
	repository.Store
	inventoryID string
}

func (s *faultyStore) Inventories() repository.InventoryRepository {
	return faultyInventories{InventoryRepository: s.Store.Inventories(), inventoryID: s.inventoryID}
}

func (s *faultyStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&faultyStore{Store: tx, inventoryID: s.inventoryID})
	})
}

type faultyInventories struct {
	repository.InventoryRepository
	inventoryID string
}

func (r faultyInventories) GetForUpdate(ctx context.Context, id string) (*domain.Inventory, error) {
	if id == r.inventoryID {
		return nil, errInventoryUnavailable
	}
	return r.InventoryRepository.GetForUpdate(ctx, id)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	store        *memory.Store
	pub          *recordingPublisher
	inventory    *InventoryService
	commissions  *CommissionService
	cancellation *CancellationService
	settlement   *SettlementService
	clock        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		pub:   &recordingPublisher{},
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.build(f.store)
	return f
}

// build wires the services on store. The fixture keeps the memory store for
// seeding and assertions.
func (f *fixture) build(store repository.Store) {
	logger := newTestLogger()
	producer := event.NewProducer(f.pub, logger)
	now := func() time.Time { return f.clock }

	f.inventory = NewInventoryService(store, producer, logger, 15*time.Minute, 2)
	f.inventory.now = now
	f.commissions = NewCommissionService(store, producer, logger)
	f.commissions.now = now
	f.cancellation = NewCancellationService(store, f.inventory, f.commissions, refund.NewStubProvider(logger), producer, logger, 0)
	f.cancellation.now = now
	f.settlement = NewSettlementService(store, f.inventory, f.commissions, logger)
	f.settlement.now = now
}

// failInventory rebuilds the services so that locking inventoryID fails.
func (f *fixture) failInventory(inventoryID string) {
	f.build(&faultyStore{Store: f.store, inventoryID: inventoryID})
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) createInventory(t *testing.T, productID string, stock, threshold int) *domain.Inventory {
	t.Helper()
	inv, err := f.inventory.CreateInventory(context.Background(), CreateInventoryInput{
		ProductID:         productID,
		SKU:               "SKU-" + productID,
		InitialStock:      stock,
		LowStockThreshold: &threshold,
		Actor:             "admin-1",
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) reload(t *testing.T, id string) *domain.Inventory {
	t.Helper()
	inv, err := f.store.Inventories().GetByID(context.Background(), id)
	require.NoError(t, err)
	assertDerived(t, inv)
	return inv
}

// assertDerived checks the derived ledger fields against their definitions.
func assertDerived(t *testing.T, inv *domain.Inventory) {
	t.Helper()
	assert.Equal(t, inv.CurrentStock-inv.ReservedStock, inv.AvailableStock)
	assert.Equal(t, inv.AvailableStock <= 0, inv.IsOutOfStock)
	assert.Equal(t, !inv.IsOutOfStock && inv.AvailableStock <= inv.LowStockThreshold, inv.IsLowStock)
}

func (f *fixture) reserve(t *testing.T, productID string, qty int, orderID string) *domain.StockReservation {
	t.Helper()
	res, err := f.inventory.ReserveStock(context.Background(), ReserveStockInput{
		ProductID: productID,
		Quantity:  qty,
		UserID:    "user-1",
		OrderID:   orderID,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) putVendor(id string, rate string) {
	f.store.PutVendor(&domain.Vendor{ID: id, Name: id, CommissionRate: decimal.RequireFromString(rate)})
}

func (f *fixture) vendor(t *testing.T, id string) *domain.Vendor {
	t.Helper()
	v, err := f.store.Vendors().GetByID(context.Background(), id)
	require.NoError(t, err)
	return v
}

func (f *fixture) order(t *testing.T, id string) *domain.Order {
	t.Helper()
	o, err := f.store.Orders().GetByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

// twoVendorOrder is $100x1 from vendor-a and $50x2 from vendor-b, in cents.
func (f *fixture) twoVendorOrder(id, status string) *domain.Order {
	o := &domain.Order{
		ID:          id,
		UserID:      "user-1",
		Status:      status,
		TotalAmount: 20000,
		Currency:    "USD",
		Items: []domain.OrderItem{
			{ID: id + "-1", ProductID: "prod-a", VendorID: "vendor-a", Name: "A", Price: 10000, Quantity: 1},
			{ID: id + "-2", ProductID: "prod-b", VendorID: "vendor-b", Name: "B", Price: 5000, Quantity: 2},
		},
		CreatedAt: f.clock,
		UpdatedAt: f.clock,
	}
	f.store.PutOrder(o)
	return o
}
