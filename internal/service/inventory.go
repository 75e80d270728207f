package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amadile/Shopping-site-sub001/internal/domain"
	"github.com/amadile/Shopping-site-sub001/internal/event"
	"github.com/amadile/Shopping-site-sub001/internal/repository"
	apperrors "github.com/amadile/Shopping-site-sub001/pkg/errors"
	"github.com/amadile/Shopping-site-sub001/pkg/sku"
)

const (
	defaultSweepBatchSize   = 500
	defaultLowStockLevel    = 10
	recentTransactionsLimit = 50
	defaultReleaseReason    = "Reservation released"
)

// InventoryService implements the stock ledger, reservation and alert operations.
type InventoryService struct {
	store          repository.Store
	producer       *event.Producer
	logger         *slog.Logger
	reservationTTL time.Duration
	sweepBatchSize int
	now            func() time.Time
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(
	store repository.Store,
	producer *event.Producer,
	logger *slog.Logger,
	reservationTTL time.Duration,
	sweepBatchSize int,
) *InventoryService {
	if reservationTTL <= 0 {
		reservationTTL = domain.DefaultReservationMinutes * time.Minute
	}
	if sweepBatchSize <= 0 {
		sweepBatchSize = defaultSweepBatchSize
	}
	return &InventoryService{
		store:          store,
		producer:       producer,
		logger:         logger,
		reservationTTL: reservationTTL,
		sweepBatchSize: sweepBatchSize,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateInventoryInput describes a new stock ledger.
type CreateInventoryInput struct {
	ProductID         string
	VariantID         string
	SKU               string
	Name              string
	InitialStock      int
	LowStockThreshold *int
	ReorderPoint      int
	MaxStockLevel     int
	Actor             string
}

// ReserveStockInput describes a stock hold placed at checkout.
type ReserveStockInput struct {
	ProductID        string
	VariantID        string
	Quantity         int
	UserID           string
	OrderID          string
	ExpiresInMinutes int
}

// CreateInventory sets up the stock ledger of a product or variant. When no
// SKU is supplied one is derived from the name or product reference.
func (s *InventoryService) CreateInventory(ctx context.Context, in CreateInventoryInput) (*domain.Inventory, error) {
	if in.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if in.InitialStock < 0 {
		return nil, apperrors.InvalidInput("initial_stock must be non-negative")
	}
	if in.ReorderPoint < 0 || in.MaxStockLevel < 0 {
		return nil, apperrors.InvalidInput("reorder_point and max_stock_level must be non-negative")
	}

	threshold := defaultLowStockLevel
	if in.LowStockThreshold != nil {
		if *in.LowStockThreshold < 0 {
			return nil, apperrors.InvalidInput("low_stock_threshold must be non-negative")
		}
		threshold = *in.LowStockThreshold
	}

	code := strings.TrimSpace(in.SKU)
	if code == "" {
		code = generateSKU(in)
	}

	now := s.now()
	inv := &domain.Inventory{
		ID:                uuid.New().String(),
		ProductID:         in.ProductID,
		VariantID:         in.VariantID,
		SKU:               code,
		CurrentStock:      in.InitialStock,
		LowStockThreshold: threshold,
		ReorderPoint:      in.ReorderPoint,
		MaxStockLevel:     in.MaxStockLevel,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	inv.Recalculate()

	var raised []*domain.StockAlert
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Inventories().Create(ctx, inv); err != nil {
			return err
		}
		if inv.CurrentStock > 0 {
			entry := inv.NewTransaction(domain.TransactionTypeRestock, inv.CurrentStock, 0, "", in.Actor, "Initial stock")
			if err := s.record(ctx, tx, inv, entry, domain.HistoryTypeRestock, "", now); err != nil {
				return err
			}
		}
		var err error
		raised, err = s.evaluateAlerts(ctx, tx, inv, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create inventory: %w", err)
	}

	s.publishUpdated(ctx, inv, "created")
	s.publishAlerts(ctx, inv, raised)

	s.logger.InfoContext(ctx, "inventory created",
		slog.String("inventory_id", inv.ID),
		slog.String("product_id", inv.ProductID),
		slog.String("sku", inv.SKU),
		slog.Int("current_stock", inv.CurrentStock),
	)

	return inv, nil
}

func generateSKU(in CreateInventoryInput) string {
	base := in.Name
	if base == "" {
		base = in.ProductID
	}
	return sku.Generate(base, in.VariantID)
}

// GetInventory retrieves an inventory record with its most recent log entries.
func (s *InventoryService) GetInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	inv, err := s.store.Inventories().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	txs, err := s.store.Inventories().ListTransactions(ctx, id, recentTransactionsLimit)
	if err != nil {
		return nil, fmt.Errorf("list inventory transactions: %w", err)
	}
	inv.Transactions = txs
	return inv, nil
}

// GetInventoryByProduct retrieves the inventory of a product or product variant.
func (s *InventoryService) GetInventoryByProduct(ctx context.Context, productID, variantID string) (*domain.Inventory, error) {
	inv, err := s.store.Inventories().GetByProductVariant(ctx, productID, variantID)
	if err != nil {
		return nil, fmt.Errorf("get inventory by product: %w", err)
	}
	return inv, nil
}

// CheckAvailability reports whether quantity units can be reserved. A missing
// record or a shortfall is a soft failure carried in the result.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID, variantID string, quantity int) (*domain.AvailabilityResult, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	inv, err := s.store.Inventories().GetByProductVariant(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.AvailabilityResult{Available: false, Stock: 0, Reason: "Product not found in inventory"}, nil
		}
		return nil, fmt.Errorf("check availability: %w", err)
	}

	inv.Recalculate()
	if inv.AvailableStock < quantity {
		return &domain.AvailabilityResult{
			Available: false,
			Stock:     inv.AvailableStock,
			Reason:    fmt.Sprintf("Only %d units available", max(inv.AvailableStock, 0)),
		}, nil
	}

	return &domain.AvailabilityResult{Available: true, Stock: inv.AvailableStock}, nil
}

// ReserveStock places a time-boxed hold on stock. The inventory row is locked
// for the duration of the transaction so concurrent holds cannot oversell.
func (s *InventoryService) ReserveStock(ctx context.Context, in ReserveStockInput) (*domain.StockReservation, error) {
	if in.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if in.OrderID == "" {
		return nil, apperrors.InvalidInput("order_id is required")
	}
	if in.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}
	if in.ExpiresInMinutes < 0 {
		return nil, apperrors.InvalidInput("expires_in_minutes must be non-negative")
	}

	ttl := s.reservationTTL
	if in.ExpiresInMinutes > 0 {
		ttl = time.Duration(in.ExpiresInMinutes) * time.Minute
	}

	inv, err := s.store.Inventories().GetByProductVariant(ctx, in.ProductID, in.VariantID)
	if err != nil {
		return nil, fmt.Errorf("reserve stock: %w", err)
	}

	var (
		reservation *domain.StockReservation
		raised      []*domain.StockAlert
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		locked, err := tx.Inventories().GetForUpdate(ctx, inv.ID)
		if err != nil {
			return err
		}
		if err := locked.Reserve(in.Quantity); err != nil {
			return err
		}
		if err := tx.Inventories().Save(ctx, locked); err != nil {
			return err
		}

		now := s.now()
		reservation = &domain.StockReservation{
			ID:          uuid.New().String(),
			InventoryID: locked.ID,
			ProductID:   locked.ProductID,
			VariantID:   locked.VariantID,
			Quantity:    in.Quantity,
			UserID:      in.UserID,
			OrderID:     in.OrderID,
			Status:      domain.ReservationStatusActive,
			ExpiresAt:   now.Add(ttl),
			CreatedAt:   now,
		}
		if err := tx.Reservations().Create(ctx, reservation); err != nil {
			return err
		}

		entry := locked.NewTransaction(domain.TransactionTypeReserved, in.Quantity, locked.CurrentStock, in.OrderID, in.UserID, "Stock reserved for order")
		if err := s.record(ctx, tx, locked, entry, domain.HistoryTypeReservation, reservation.ID, now); err != nil {
			return err
		}

		raised, err = s.evaluateAlerts(ctx, tx, locked, now)
		inv = locked
		return err
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrInsufficientStock) {
			outcome = "insufficient_stock"
		}
		ReservationsTotal.WithLabelValues("reserve", outcome).Inc()
		return nil, fmt.Errorf("reserve stock: %w", appError(err))
	}
	ReservationsTotal.WithLabelValues("reserve", "success").Inc()

	if err := s.producer.PublishInventoryReserved(ctx, reservation); err != nil {
		s.logPublishError(ctx, event.TopicInventoryReserved, reservation.ID, err)
	}
	s.publishAlerts(ctx, inv, raised)

	s.logger.InfoContext(ctx, "stock reserved",
		slog.String("reservation_id", reservation.ID),
		slog.String("inventory_id", inv.ID),
		slog.String("order_id", in.OrderID),
		slog.Int("quantity", in.Quantity),
		slog.Int("available", inv.AvailableStock),
	)

	return reservation, nil
}

// ReleaseReservedStock returns a hold to availability. Releasing a reservation
// that is no longer active reports Success false and changes nothing.
func (s *InventoryService) ReleaseReservedStock(ctx context.Context, reservationID, reason, actor string) (*domain.ReleaseResult, error) {
	if reason == "" {
		reason = defaultReleaseReason
	}

	var (
		result *domain.ReleaseResult
		raised []*domain.StockAlert
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		res, err := tx.Reservations().GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if !res.IsActive() {
			result = &domain.ReleaseResult{
				Success:     false,
				Message:     fmt.Sprintf("Reservation already %s", res.Status),
				Reservation: res,
			}
			return nil
		}

		if actor == "" {
			actor = res.UserID
		}
		inv, alerts, err := s.releaseLocked(ctx, tx, res, reason, actor)
		if err != nil {
			return err
		}
		raised = alerts
		result = &domain.ReleaseResult{
			Success:     true,
			Message:     "Reservation released",
			Reservation: res,
			Inventory:   inv,
		}
		return nil
	})
	if err != nil {
		ReservationsTotal.WithLabelValues("release", "error").Inc()
		return nil, fmt.Errorf("release reservation: %w", appError(err))
	}
	if !result.Success {
		ReservationsTotal.WithLabelValues("release", "noop").Inc()
		return result, nil
	}
	ReservationsTotal.WithLabelValues("release", "success").Inc()

	if err := s.producer.PublishInventoryReleased(ctx, result.Reservation); err != nil {
		s.logPublishError(ctx, event.TopicInventoryReleased, reservationID, err)
	}
	s.publishAlerts(ctx, result.Inventory, raised)

	s.logger.InfoContext(ctx, "reservation released",
		slog.String("reservation_id", reservationID),
		slog.String("inventory_id", result.Reservation.InventoryID),
		slog.Int("quantity", result.Reservation.Quantity),
		slog.String("reason", reason),
	)

	return result, nil
}

// releaseLocked releases an active reservation already locked by tx.
func (s *InventoryService) releaseLocked(ctx context.Context, tx repository.Store, res *domain.StockReservation, reason, actor string) (*domain.Inventory, []*domain.StockAlert, error) {
	inv, err := tx.Inventories().GetForUpdate(ctx, res.InventoryID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	previous := inv.CurrentStock
	inv.ReleaseHold(res.Quantity)
	if err := tx.Inventories().Save(ctx, inv); err != nil {
		return nil, nil, err
	}

	entry := inv.NewTransaction(domain.TransactionTypeAdjustment, res.Quantity, previous, res.OrderID, actor, reason)
	if err := s.record(ctx, tx, inv, entry, domain.HistoryTypeReservationRelease, res.ID, now); err != nil {
		return nil, nil, err
	}

	res.Release(now, reason)
	if err := tx.Reservations().UpdateStatus(ctx, res); err != nil {
		return nil, nil, err
	}

	raised, err := s.evaluateAlerts(ctx, tx, inv, now)
	if err != nil {
		return nil, nil, err
	}
	return inv, raised, nil
}

// ConfirmReservation converts a hold into a stock deduction. Confirming twice
// is a no-op; confirming a released or expired hold fails.
func (s *InventoryService) ConfirmReservation(ctx context.Context, reservationID, userID string) (*domain.ConfirmResult, error) {
	var (
		result *domain.ConfirmResult
		raised []*domain.StockAlert
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		res, err := tx.Reservations().GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if err := res.CanConfirm(); err != nil {
			return err
		}
		if res.Status == domain.ReservationStatusConfirmed {
			result = &domain.ConfirmResult{Success: true, AlreadyConfirmed: true, Reservation: res}
			return nil
		}

		inv, err := tx.Inventories().GetForUpdate(ctx, res.InventoryID)
		if err != nil {
			return err
		}

		now := s.now()
		previous := inv.CurrentStock
		if err := inv.ConfirmHold(res.Quantity); err != nil {
			return err
		}
		if err := tx.Inventories().Save(ctx, inv); err != nil {
			return err
		}

		actor := userID
		if actor == "" {
			actor = res.UserID
		}
		entry := inv.NewTransaction(domain.TransactionTypeSale, -res.Quantity, previous, res.OrderID, actor, "Reservation confirmed")
		if err := s.record(ctx, tx, inv, entry, domain.HistoryTypeSale, res.ID, now); err != nil {
			return err
		}

		res.Confirm(now)
		if err := tx.Reservations().UpdateStatus(ctx, res); err != nil {
			return err
		}

		raised, err = s.evaluateAlerts(ctx, tx, inv, now)
		if err != nil {
			return err
		}
		result = &domain.ConfirmResult{Success: true, Reservation: res, Inventory: inv}
		return nil
	})
	if err != nil {
		ReservationsTotal.WithLabelValues("confirm", "error").Inc()
		return nil, fmt.Errorf("confirm reservation: %w", appError(err))
	}
	if result.AlreadyConfirmed {
		ReservationsTotal.WithLabelValues("confirm", "noop").Inc()
		return result, nil
	}
	ReservationsTotal.WithLabelValues("confirm", "success").Inc()

	if err := s.producer.PublishInventoryConfirmed(ctx, result.Reservation); err != nil {
		s.logPublishError(ctx, event.TopicInventoryConfirmed, reservationID, err)
	}
	s.publishUpdated(ctx, result.Inventory, domain.TransactionTypeSale)
	s.publishAlerts(ctx, result.Inventory, raised)

	s.logger.InfoContext(ctx, "reservation confirmed",
		slog.String("reservation_id", reservationID),
		slog.String("inventory_id", result.Inventory.ID),
		slog.Int("quantity", result.Reservation.Quantity),
		slog.Int("current_stock", result.Inventory.CurrentStock),
	)

	return result, nil
}

// ReleaseExpiredReservations releases every active reservation whose expiry
// has passed. A failure on one reservation is recorded and the sweep goes on.
func (s *InventoryService) ReleaseExpiredReservations(ctx context.Context) (*domain.SweepResult, error) {
	result := &domain.SweepResult{Results: []domain.StepResult{}}
	now := s.now()
	var cursor repository.ExpiryCursor

	for {
		batch, err := s.store.Reservations().ListExpiredActive(ctx, now, cursor, s.sweepBatchSize)
		if err != nil {
			return result, fmt.Errorf("list expired reservations: %w", err)
		}

		for i := range batch {
			id := batch[i].ID
			if err := ctx.Err(); err != nil {
				return result, err
			}

			res, err := s.ReleaseReservedStock(ctx, id, domain.ReleaseReasonExpired, event.SystemActor)
			switch {
			case err != nil:
				result.Failed++
				SweepFailedTotal.Inc()
				s.logger.ErrorContext(ctx, "failed to release expired reservation",
					slog.String("reservation_id", id),
					slog.String("error", err.Error()),
				)
			case res.Success:
				result.Released++
				SweepReleasedTotal.Inc()
			default:
				// Resolved concurrently between listing and locking.
				continue
			}
			result.Results = append(result.Results, domain.NewStepResult(domain.StepReleaseReservation, id, err))
		}

		// Failed rows stay active, so the scan moves past them by key.
		if len(batch) < s.sweepBatchSize {
			break
		}
		cursor = repository.CursorAfter(batch[len(batch)-1])
	}

	if result.Released > 0 || result.Failed > 0 {
		s.logger.InfoContext(ctx, "released expired reservations",
			slog.Int("released", result.Released),
			slog.Int("failed", result.Failed),
		)
	}

	return result, nil
}

// AddStock increases the physical count of an inventory record.
func (s *InventoryService) AddStock(ctx context.Context, inventoryID string, quantity int, actor, reason string) (*domain.Inventory, error) {
	return s.addStock(ctx, inventoryID, quantity, "", actor, reason)
}

func (s *InventoryService) addStock(ctx context.Context, inventoryID string, quantity int, orderID, actor, reason string) (*domain.Inventory, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}
	if reason == "" {
		reason = "Restock"
	}

	var (
		inv    *domain.Inventory
		raised []*domain.StockAlert
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		inv, err = tx.Inventories().GetForUpdate(ctx, inventoryID)
		if err != nil {
			return err
		}

		now := s.now()
		previous := inv.CurrentStock
		crossed, err := inv.Restock(quantity)
		if err != nil {
			return err
		}
		if err := tx.Inventories().Save(ctx, inv); err != nil {
			return err
		}

		entry := inv.NewTransaction(domain.TransactionTypeRestock, quantity, previous, orderID, actor, reason)
		if err := s.record(ctx, tx, inv, entry, domain.HistoryTypeRestock, orderID, now); err != nil {
			return err
		}

		if crossed {
			if _, err := tx.Alerts().ResolveActive(ctx, inv.ID, domain.AlertTypeLowStock, now); err != nil {
				return err
			}
		}
		if !inv.NeedsReorder() {
			if _, err := tx.Alerts().ResolveActive(ctx, inv.ID, domain.AlertTypeReorderPoint, now); err != nil {
				return err
			}
		}

		raised, err = s.evaluateAlerts(ctx, tx, inv, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add stock: %w", appError(err))
	}

	s.publishUpdated(ctx, inv, domain.TransactionTypeRestock)
	s.publishAlerts(ctx, inv, raised)

	s.logger.InfoContext(ctx, "stock added",
		slog.String("inventory_id", inv.ID),
		slog.Int("quantity", quantity),
		slog.Int("current_stock", inv.CurrentStock),
		slog.String("reason", reason),
	)

	return inv, nil
}

// AdjustStock overwrites the physical count after a manual correction.
func (s *InventoryService) AdjustStock(ctx context.Context, inventoryID string, newQuantity int, actor, reason string) (*domain.Inventory, error) {
	if newQuantity < 0 {
		return nil, apperrors.InvalidInput("new_quantity must be non-negative")
	}
	if reason == "" {
		reason = "Manual adjustment"
	}

	var (
		inv    *domain.Inventory
		delta  int
		raised []*domain.StockAlert
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		inv, err = tx.Inventories().GetForUpdate(ctx, inventoryID)
		if err != nil {
			return err
		}

		now := s.now()
		previous := inv.CurrentStock
		delta, err = inv.SetStock(newQuantity)
		if err != nil {
			return err
		}
		if err := tx.Inventories().Save(ctx, inv); err != nil {
			return err
		}

		entry := inv.NewTransaction(domain.TransactionTypeAdjustment, delta, previous, "", actor, reason)
		if err := s.record(ctx, tx, inv, entry, domain.HistoryTypeAdjustment, "", now); err != nil {
			return err
		}

		raised, err = s.evaluateAlerts(ctx, tx, inv, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", appError(err))
	}

	if err := inv.ValidateInvariants(); err != nil {
		s.logger.WarnContext(ctx, "adjustment left inventory below its holds",
			slog.String("inventory_id", inv.ID),
			slog.String("error", err.Error()),
		)
	}

	s.publishUpdated(ctx, inv, domain.TransactionTypeAdjustment)
	s.publishAlerts(ctx, inv, raised)

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("inventory_id", inv.ID),
		slog.Int("delta", delta),
		slog.Int("current_stock", inv.CurrentStock),
		slog.String("reason", reason),
	)

	return inv, nil
}

// ListLowStock returns inventory records flagged low or out of stock.
func (s *InventoryService) ListLowStock(ctx context.Context, page, perPage int) ([]domain.Inventory, int, error) {
	page, perPage = clampPage(page, perPage)
	items, total, err := s.store.Inventories().ListLowStock(ctx, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list low stock: %w", err)
	}
	return items, total, nil
}

// ListHistory returns the audit trail of an inventory record.
func (s *InventoryService) ListHistory(ctx context.Context, inventoryID string, page, perPage int) ([]domain.StockHistory, int, error) {
	if _, err := s.store.Inventories().GetByID(ctx, inventoryID); err != nil {
		return nil, 0, fmt.Errorf("list stock history: %w", err)
	}
	page, perPage = clampPage(page, perPage)
	items, total, err := s.store.History().ListByInventory(ctx, inventoryID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock history: %w", err)
	}
	return items, total, nil
}

// ListAlerts returns stock alerts, optionally filtered by status.
func (s *InventoryService) ListAlerts(ctx context.Context, status string, page, perPage int) ([]domain.StockAlert, int, error) {
	if status != "" && !domain.IsValidAlertStatus(status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid alert status %q", status))
	}
	page, perPage = clampPage(page, perPage)
	items, total, err := s.store.Alerts().List(ctx, status, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock alerts: %w", err)
	}
	return items, total, nil
}

// AcknowledgeAlert marks an active alert as seen.
func (s *InventoryService) AcknowledgeAlert(ctx context.Context, alertID, userID string) (*domain.StockAlert, error) {
	var alert *domain.StockAlert
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		alert, err = tx.Alerts().GetByID(ctx, alertID)
		if err != nil {
			return err
		}
		if err := alert.Acknowledge(userID, s.now()); err != nil {
			return apperrors.Conflict(err.Error())
		}
		return tx.Alerts().Update(ctx, alert)
	})
	if err != nil {
		return nil, fmt.Errorf("acknowledge alert: %w", err)
	}
	return alert, nil
}

// ReleaseOrderReservations releases every active reservation of an order.
func (s *InventoryService) ReleaseOrderReservations(ctx context.Context, orderID, reason, actor string) ([]domain.StepResult, error) {
	reservations, err := s.store.Reservations().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order reservations: %w", err)
	}

	results := []domain.StepResult{}
	for i := range reservations {
		if !reservations[i].IsActive() {
			continue
		}
		_, err := s.ReleaseReservedStock(ctx, reservations[i].ID, reason, actor)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to release order reservation",
				slog.String("order_id", orderID),
				slog.String("reservation_id", reservations[i].ID),
				slog.String("error", err.Error()),
			)
		}
		results = append(results, domain.NewStepResult(domain.StepReleaseReservation, reservations[i].ID, err))
	}
	return results, nil
}

// ConfirmOrderReservations confirms every active reservation of an order.
func (s *InventoryService) ConfirmOrderReservations(ctx context.Context, orderID, actor string) ([]domain.StepResult, error) {
	reservations, err := s.store.Reservations().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order reservations: %w", err)
	}

	results := []domain.StepResult{}
	for i := range reservations {
		if !reservations[i].IsActive() {
			continue
		}
		_, err := s.ConfirmReservation(ctx, reservations[i].ID, actor)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to confirm order reservation",
				slog.String("order_id", orderID),
				slog.String("reservation_id", reservations[i].ID),
				slog.String("error", err.Error()),
			)
		}
		results = append(results, domain.NewStepResult(domain.StepConfirmReservation, reservations[i].ID, err))
	}
	return results, nil
}

// PurgeReservations deletes resolved reservations created before cutoff.
func (s *InventoryService) PurgeReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.store.Reservations().PurgeResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reservations: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "purged resolved reservations",
			slog.Int64("count", n),
			slog.Time("cutoff", cutoff),
		)
	}
	return n, nil
}

// record appends a log entry and mirrors it into the audit trail.
func (s *InventoryService) record(ctx context.Context, tx repository.Store, inv *domain.Inventory, entry domain.StockTransaction, historyType, referenceID string, now time.Time) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = now
	if err := tx.Inventories().AppendTransaction(ctx, &entry); err != nil {
		return fmt.Errorf("append stock transaction: %w", err)
	}

	h := domain.HistoryFromTransaction(inv, historyType, entry, referenceID)
	h.ID = uuid.New().String()
	h.CreatedAt = now
	if err := tx.History().Create(ctx, h); err != nil {
		return fmt.Errorf("create stock history: %w", err)
	}
	return nil
}

// evaluateAlerts resolves out-of-stock alerts once stock is back and raises
// any alert whose condition holds and is not already active.
func (s *InventoryService) evaluateAlerts(ctx context.Context, tx repository.Store, inv *domain.Inventory, now time.Time) ([]*domain.StockAlert, error) {
	if !inv.IsOutOfStock {
		if _, err := tx.Alerts().ResolveActive(ctx, inv.ID, domain.AlertTypeOutOfStock, now); err != nil {
			return nil, fmt.Errorf("resolve out of stock alerts: %w", err)
		}
	}

	var raised []*domain.StockAlert
	for _, alertType := range domain.TriggeredAlerts(inv) {
		active, err := tx.Alerts().HasActive(ctx, inv.ID, alertType)
		if err != nil {
			return nil, fmt.Errorf("check active alert: %w", err)
		}
		if active {
			continue
		}
		alert := domain.NewStockAlert(inv, alertType)
		alert.ID = uuid.New().String()
		alert.CreatedAt = now
		if err := tx.Alerts().Create(ctx, alert); err != nil {
			return nil, fmt.Errorf("create stock alert: %w", err)
		}
		raised = append(raised, alert)
	}
	return raised, nil
}

func (s *InventoryService) publishAlerts(ctx context.Context, inv *domain.Inventory, raised []*domain.StockAlert) {
	for _, a := range raised {
		StockAlertsRaisedTotal.WithLabelValues(a.Type).Inc()
		if a.Type == domain.AlertTypeReorderPoint {
			continue
		}
		if err := s.producer.PublishInventoryLowStock(ctx, inv, a.Type); err != nil {
			s.logPublishError(ctx, event.TopicInventoryLowStock, inv.ID, err)
		}
	}
}

func (s *InventoryService) publishUpdated(ctx context.Context, inv *domain.Inventory, change string) {
	if err := s.producer.PublishInventoryUpdated(ctx, inv, change); err != nil {
		s.logPublishError(ctx, event.TopicInventoryUpdated, inv.ID, err)
	}
}

func (s *InventoryService) logPublishError(ctx context.Context, topic, id string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish event",
		slog.String("topic", topic),
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
}

func clampPage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
