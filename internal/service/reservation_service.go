package service

import (
	"context"
	"errors"
	"time"

	"go-stock-ledger/internal/events"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService drives the hold lifecycle on the ledger:
// order-scoped reserve → fulfill/release, and cart-scoped soft holds with
// a TTL. Order state is never stored; it is whatever the ledger deltas say.
//
// Multi-item calls mutate per item, not as one multi-row transaction; a
// failure mid-list leaves earlier items applied. Only the validation stage
// is all-or-nothing.
type ReservationService interface {
	Reserve(ctx context.Context, orderID uuid.UUID, actor string, allowOverselling bool) error
	Release(ctx context.Context, orderID uuid.UUID, actor string) error
	Fulfill(ctx context.Context, orderID uuid.UUID, actor string, allowNegative bool) error
	Return(ctx context.Context, orderID uuid.UUID, actor string, restock bool) error

	ReserveCartStock(ctx context.Context, cartID uuid.UUID, actor string, ttl time.Duration) error
	ReleaseCartStock(ctx context.Context, cartID uuid.UUID, actor string) error
	ExtendCartReservation(ctx context.Context, cartID uuid.UUID, d time.Duration) (int64, error)

	// ReleaseExpiredLine is the sweeper's entry into the cart-release path.
	ReleaseExpiredLine(ctx context.Context, line model.CartLine) error
}

type reservationService struct {
	stocks     repository.StockRepository
	carts      repository.CartRepository
	orderLines repository.OrderLineSource
	notify     *notifier
	log        *zap.Logger

	cartTTL     time.Duration
	checkoutTTL time.Duration
}

func NewReservationService(
	stocks repository.StockRepository,
	carts repository.CartRepository,
	orderLines repository.OrderLineSource,
	hub *ws.Hub,
	producer *events.Producer,
	log *zap.Logger,
	serviceName string,
	cartTTL, checkoutTTL time.Duration,
) ReservationService {
	if cartTTL <= 0 {
		cartTTL = model.CartHoldTTL
	}
	if checkoutTTL <= 0 {
		checkoutTTL = model.CheckoutHoldTTL
	}
	return &reservationService{
		stocks:      stocks,
		carts:       carts,
		orderLines:  orderLines,
		notify:      newNotifier(hub, producer, serviceName),
		log:         log,
		cartTTL:     cartTTL,
		checkoutTTL: checkoutTTL,
	}
}

// checkLines is the all-or-nothing validation stage run before any
// mutation. Not-found keys count as shortages with nothing free.
func (s *reservationService) checkLines(ctx context.Context, lines []model.OrderLine) *model.InsufficientStockError {
	var shortages []model.Shortage
	for _, line := range lines {
		available, reserved, err := s.stocks.Availability(ctx, line.Key)
		if errors.Is(err, model.ErrStockNotFound) {
			shortages = append(shortages, model.Shortage{Key: line.Key, Requested: line.Quantity})
			continue
		}
		if err != nil {
			s.log.Error("availability check failed", zap.String("key", line.Key.String()), zap.Error(err))
			shortages = append(shortages, model.Shortage{Key: line.Key, Requested: line.Quantity})
			continue
		}
		if available-reserved < line.Quantity {
			shortages = append(shortages, model.Shortage{
				Key:       line.Key,
				Requested: line.Quantity,
				Available: available,
				Reserved:  reserved,
			})
		}
	}
	if len(shortages) > 0 {
		return &model.InsufficientStockError{Items: shortages}
	}
	return nil
}

func (s *reservationService) Reserve(ctx context.Context, orderID uuid.UUID, actor string, allowOverselling bool) error {
	lines, err := s.orderLines.OrderLines(ctx, orderID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return model.ErrNoOrderLines
	}

	ref := orderID.String()
	if ise := s.checkLines(ctx, lines); ise != nil {
		if !allowOverselling {
			s.notify.movement(events.EventStockRejected, "reservation_rejected", ref, actor,
				rejectedPayload(ref, ise))
			return ise
		}
		// Business decision to sell past the free pool (e.g. pre-orders);
		// log the shortfall and carry on.
		s.log.Warn("reserving past free stock", zap.String("order_id", ref), zap.String("shortfall", ise.Error()))
	}

	audit := repository.AuditInfo{Reason: "order reservation", Reference: ref, Actor: actor}
	moved := make([]events.MovementItem, 0, len(lines))
	for _, line := range lines {
		rec, err := s.stocks.Reserve(ctx, line.Key, line.Quantity, audit, allowOverselling)
		if err != nil {
			// Validation passed but the lock-time re-check did not: a
			// concurrent caller took the capacity first.
			if ise, ok := model.IsInsufficientStock(err); ok {
				s.notify.movement(events.EventStockRejected, "reservation_rejected", ref, actor,
					rejectedPayload(ref, ise))
			}
			return err
		}
		moved = append(moved, movementItem(rec, line.Quantity))
	}

	s.notify.movement(events.EventStockReserved, "stock_reserved", ref, actor,
		events.StockMovementPayload{Reference: ref, Items: moved})
	return nil
}

func (s *reservationService) Release(ctx context.Context, orderID uuid.UUID, actor string) error {
	lines, err := s.orderLines.OrderLines(ctx, orderID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return model.ErrNoOrderLines
	}

	ref := orderID.String()
	audit := repository.AuditInfo{Reason: "order reservation released", Reference: ref, Actor: actor}
	moved := make([]events.MovementItem, 0, len(lines))
	for _, line := range lines {
		rec, err := s.stocks.ReleaseReserved(ctx, line.Key, line.Quantity, audit)
		if errors.Is(err, model.ErrStockNotFound) {
			// Nothing to release is success, not an error.
			continue
		}
		if err != nil {
			return err
		}
		moved = append(moved, movementItem(rec, line.Quantity))
	}

	s.notify.movement(events.EventStockReleased, "stock_released", ref, actor,
		events.StockMovementPayload{Reference: ref, Items: moved})
	return nil
}

func (s *reservationService) Fulfill(ctx context.Context, orderID uuid.UUID, actor string, allowNegative bool) error {
	lines, err := s.orderLines.OrderLines(ctx, orderID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return model.ErrNoOrderLines
	}

	// Fulfillment requires every order line to resolve to a ledger row;
	// abort before mutating anything if one is missing.
	for _, line := range lines {
		if _, err := s.stocks.FindByKey(ctx, line.Key); err != nil {
			return err
		}
	}

	ref := orderID.String()
	audit := repository.AuditInfo{Reason: "order fulfilled", Reference: ref, Actor: actor}
	moved := make([]events.MovementItem, 0, len(lines))
	for _, line := range lines {
		rec, err := s.stocks.Fulfill(ctx, line.Key, line.Quantity, audit, allowNegative)
		if err != nil {
			return err
		}
		moved = append(moved, movementItem(rec, line.Quantity))
	}

	s.notify.movement(events.EventStockFulfilled, "stock_fulfilled", ref, actor,
		events.StockMovementPayload{Reference: ref, Items: moved})
	return nil
}

func (s *reservationService) Return(ctx context.Context, orderID uuid.UUID, actor string, restock bool) error {
	if !restock {
		// Returned units are not going back on the shelf (damaged,
		// written off separately); the ledger stays put.
		return nil
	}

	lines, err := s.orderLines.OrderLines(ctx, orderID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return model.ErrNoOrderLines
	}

	ref := orderID.String()
	audit := repository.AuditInfo{Reason: "order return restocked", Reference: ref, Actor: actor}
	moved := make([]events.MovementItem, 0, len(lines))
	for _, line := range lines {
		rec, err := s.stocks.Restock(ctx, line.Key, line.Quantity, audit)
		if err != nil {
			return err
		}
		moved = append(moved, movementItem(rec, line.Quantity))
	}

	s.notify.movement(events.EventStockReturned, "stock_returned", ref, actor,
		events.StockMovementPayload{Reference: ref, Items: moved})
	return nil
}

func (s *reservationService) ReserveCartStock(ctx context.Context, cartID uuid.UUID, actor string, ttl time.Duration) error {
	lines, err := s.carts.LinesByCart(ctx, cartID)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.cartTTL
	}

	ref := cartID.String()
	pending := make([]model.OrderLine, 0, len(lines))
	for _, line := range lines {
		if line.Reserved() {
			continue // already holding
		}
		pending = append(pending, model.OrderLine{Key: line.Key(), Quantity: line.Quantity})
	}
	if len(pending) == 0 {
		return nil
	}
	if ise := s.checkLines(ctx, pending); ise != nil {
		s.notify.movement(events.EventStockRejected, "cart_reservation_rejected", ref, actor,
			rejectedPayload(ref, ise))
		return ise
	}

	audit := repository.AuditInfo{Reason: "cart reservation", Reference: ref, Actor: actor}
	now := time.Now()
	moved := make([]events.MovementItem, 0, len(lines))
	for _, line := range lines {
		if line.Reserved() {
			continue
		}
		rec, err := s.stocks.Reserve(ctx, line.Key(), line.Quantity, audit, false)
		if err != nil {
			if ise, ok := model.IsInsufficientStock(err); ok {
				s.notify.movement(events.EventStockRejected, "cart_reservation_rejected", ref, actor,
					rejectedPayload(ref, ise))
			}
			return err
		}
		if err := s.carts.MarkReserved(ctx, line.ID, uuid.New(), now, now.Add(ttl)); err != nil {
			return err
		}
		moved = append(moved, movementItem(rec, line.Quantity))
	}

	s.notify.movement(events.EventStockReserved, "cart_stock_reserved", ref, actor,
		events.StockMovementPayload{Reference: ref, Items: moved})
	return nil
}

func (s *reservationService) ReleaseCartStock(ctx context.Context, cartID uuid.UUID, actor string) error {
	lines, err := s.carts.LinesByCart(ctx, cartID)
	if err != nil {
		return err
	}

	ref := cartID.String()
	audit := repository.AuditInfo{Reason: "cart reservation released", Reference: ref, Actor: actor}
	moved := make([]events.MovementItem, 0, len(lines))
	for _, line := range lines {
		if !line.Reserved() {
			continue // silent no-op for unreserved cart lines
		}
		rec, err := s.stocks.ReleaseReserved(ctx, line.Key(), line.Quantity, audit)
		if err != nil && !errors.Is(err, model.ErrStockNotFound) {
			return err
		}
		if err := s.carts.ClearReservation(ctx, line.ID); err != nil {
			return err
		}
		if rec != nil {
			moved = append(moved, movementItem(rec, line.Quantity))
		}
	}

	if len(moved) > 0 {
		s.notify.movement(events.EventStockReleased, "cart_stock_released", ref, actor,
			events.StockMovementPayload{Reference: ref, Items: moved})
	}
	return nil
}

func (s *reservationService) ExtendCartReservation(ctx context.Context, cartID uuid.UUID, d time.Duration) (int64, error) {
	if d <= 0 {
		d = s.checkoutTTL
	}
	return s.carts.ExtendReservations(ctx, cartID, time.Now().Add(d))
}

func (s *reservationService) ReleaseExpiredLine(ctx context.Context, line model.CartLine) error {
	if !line.Reserved() {
		return nil
	}
	audit := repository.AuditInfo{
		Reason:    "cart hold expired",
		Reference: line.CartID.String(),
		Actor:     "sweeper",
	}
	rec, err := s.stocks.ReleaseReserved(ctx, line.Key(), line.Quantity, audit)
	if err != nil && !errors.Is(err, model.ErrStockNotFound) {
		return err
	}
	if err := s.carts.ClearReservation(ctx, line.ID); err != nil {
		return err
	}
	if rec != nil {
		s.notify.movement(events.EventStockReleased, "cart_hold_expired", line.CartID.String(), "sweeper",
			events.StockMovementPayload{
				Reference: line.CartID.String(),
				Items:     []events.MovementItem{movementItem(rec, line.Quantity)},
			})
	}
	return nil
}

func movementItem(rec *model.StockRecord, qty int) events.MovementItem {
	return events.MovementItem{
		InventoryID:    rec.ID,
		ProductID:      rec.ProductID,
		VariantID:      rec.VariantID,
		Quantity:       qty,
		AvailableAfter: rec.AvailableQuantity,
		ReservedAfter:  rec.ReservedQuantity,
	}
}

func rejectedPayload(ref string, ise *model.InsufficientStockError) events.StockRejectedPayload {
	items := make([]events.RejectedItem, 0, len(ise.Items))
	for _, it := range ise.Items {
		item := events.RejectedItem{Requested: it.Requested, Free: it.Free()}
		id := it.Key.ID()
		if it.Key.IsVariant() {
			item.VariantID = &id
		} else {
			item.ProductID = &id
		}
		items = append(items, item)
	}
	return events.StockRejectedPayload{Reference: ref, Reason: "INSUFFICIENT_STOCK", Items: items}
}
