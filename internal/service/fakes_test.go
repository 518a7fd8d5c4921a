package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
)

// In-memory doubles for the repository interfaces. The mutex stands in for
// the database's row lock / atomic update guarantee, which is exactly the
// contract the services rely on.

type fakeStockRepo struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*model.StockRecord
	adjustments []model.StockAdjustment
	archived    map[uuid.UUID]bool // by key id
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{
		records:  make(map[uuid.UUID]*model.StockRecord),
		archived: make(map[uuid.UUID]bool),
	}
}

// seed registers a record for a key at a location and returns its id.
func (f *fakeStockRepo) seed(locationID uuid.UUID, key model.StockKey, available, reserved int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &model.StockRecord{
		LocationID:        locationID,
		AvailableQuantity: available,
		ReservedQuantity:  reserved,
		Condition:         model.ConditionSellable,
	}
	rec.ID = uuid.New()
	id := key.ID()
	if key.IsVariant() {
		rec.VariantID = &id
	} else {
		rec.ProductID = &id
	}
	f.records[rec.ID] = rec
	return rec.ID
}

func (f *fakeStockRepo) snapshot(id uuid.UUID) model.StockRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.records[id]
}

func (f *fakeStockRepo) adjustmentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.adjustments)
}

func (f *fakeStockRepo) lastAdjustment() model.StockAdjustment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adjustments[len(f.adjustments)-1]
}

func (f *fakeStockRepo) findLocked(key model.StockKey) *model.StockRecord {
	for _, rec := range f.records {
		if rec.Key() == key {
			return rec
		}
	}
	return nil
}

func (f *fakeStockRepo) record(rec *model.StockRecord, adjType model.AdjustmentType, change, before, after int, audit repository.AuditInfo) {
	f.adjustments = append(f.adjustments, model.StockAdjustment{
		InventoryID:     rec.ID,
		Type:            adjType,
		QuantityChange:  change,
		QuantityBefore:  before,
		QuantityAfter:   after,
		Reason:          audit.Reason,
		ReferenceNumber: audit.Reference,
		AdjustedBy:      audit.Actor,
	})
}

func (f *fakeStockRepo) Create(_ context.Context, rec *model.StockRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeStockRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, model.ErrStockNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStockRepo) FindByKey(_ context.Context, key model.StockKey) (*model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec := f.findLocked(key); rec != nil {
		cp := *rec
		return &cp, nil
	}
	return nil, model.ErrStockNotFound
}

func (f *fakeStockRepo) FindByLocationAndKey(_ context.Context, locationID uuid.UUID, key model.StockKey) (*model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.LocationID == locationID && rec.Key() == key {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, model.ErrStockNotFound
}

func (f *fakeStockRepo) FindAll(_ context.Context) ([]model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.StockRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeStockRepo) Availability(_ context.Context, key model.StockKey) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.archived[key.ID()] {
		return 0, 0, model.ErrStockNotFound
	}
	rec := f.findLocked(key)
	if rec == nil {
		return 0, 0, model.ErrStockNotFound
	}
	return rec.AvailableQuantity, rec.ReservedQuantity, nil
}

func (f *fakeStockRepo) Reserve(_ context.Context, key model.StockKey, qty int, audit repository.AuditInfo, allowOversell bool) (*model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.findLocked(key)
	if rec == nil {
		return nil, model.ErrStockNotFound
	}
	if !allowOversell && rec.FreeToPromise() < qty {
		return nil, &model.InsufficientStockError{Items: []model.Shortage{{
			Key: key, Requested: qty, Available: rec.AvailableQuantity, Reserved: rec.ReservedQuantity,
		}}}
	}
	rec.ReservedQuantity += qty
	f.record(rec, model.AdjustmentCorrection, 0, rec.AvailableQuantity, rec.AvailableQuantity, audit)
	cp := *rec
	return &cp, nil
}

func (f *fakeStockRepo) ReleaseReserved(_ context.Context, key model.StockKey, qty int, audit repository.AuditInfo) (*model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.findLocked(key)
	if rec == nil {
		return nil, model.ErrStockNotFound
	}
	rec.ReservedQuantity -= qty
	if rec.ReservedQuantity < 0 {
		rec.ReservedQuantity = 0
	}
	f.record(rec, model.AdjustmentCorrection, 0, rec.AvailableQuantity, rec.AvailableQuantity, audit)
	cp := *rec
	return &cp, nil
}

func (f *fakeStockRepo) Fulfill(_ context.Context, key model.StockKey, qty int, audit repository.AuditInfo, allowNegative bool) (*model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.findLocked(key)
	if rec == nil {
		return nil, model.ErrStockNotFound
	}
	if !allowNegative && rec.AvailableQuantity < qty {
		return nil, model.ErrNegativeResult
	}
	before := rec.AvailableQuantity
	rec.AvailableQuantity -= qty
	rec.ReservedQuantity -= qty
	if rec.ReservedQuantity < 0 {
		rec.ReservedQuantity = 0
	}
	rec.TotalSold += int64(qty)
	rec.TotalFulfilled++
	now := time.Now()
	rec.LastSaleAt = &now
	f.record(rec, model.AdjustmentDecrease, -qty, before, rec.AvailableQuantity, audit)
	cp := *rec
	return &cp, nil
}

func (f *fakeStockRepo) Restock(_ context.Context, key model.StockKey, qty int, audit repository.AuditInfo) (*model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.findLocked(key)
	if rec == nil {
		return nil, model.ErrStockNotFound
	}
	before := rec.AvailableQuantity
	rec.AvailableQuantity += qty
	f.record(rec, model.AdjustmentIncrease, qty, before, rec.AvailableQuantity, audit)
	cp := *rec
	return &cp, nil
}

func (f *fakeStockRepo) AdjustQuantity(_ context.Context, inventoryID uuid.UUID, delta int, adjType model.AdjustmentType, audit repository.AuditInfo, allowNegative bool) (*model.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[inventoryID]
	if !ok {
		return nil, model.ErrStockNotFound
	}
	before := rec.AvailableQuantity
	after := before + delta
	if after < 0 && !allowNegative {
		return nil, model.ErrNegativeResult
	}
	rec.AvailableQuantity = after
	f.record(rec, adjType, delta, before, after, audit)
	cp := *rec
	return &cp, nil
}

func (f *fakeStockRepo) Stats(_ context.Context) (*repository.StockStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &repository.StockStats{}
	for _, rec := range f.records {
		stats.TotalRecords++
		switch rec.Status() {
		case model.StatusOutOfStock:
			stats.OutOfStock++
		case model.StatusLowStock:
			stats.LowStock++
		}
	}
	return stats, nil
}

type fakeCartRepo struct {
	mu    sync.Mutex
	lines map[uuid.UUID]*model.CartLine
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{lines: make(map[uuid.UUID]*model.CartLine)}
}

func (f *fakeCartRepo) addLine(cartID uuid.UUID, key model.StockKey, qty int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := &model.CartLine{CartID: cartID, Quantity: qty}
	line.ID = uuid.New()
	id := key.ID()
	if key.IsVariant() {
		line.VariantID = &id
	} else {
		line.ProductID = &id
	}
	f.lines[line.ID] = line
	return line.ID
}

func (f *fakeCartRepo) line(id uuid.UUID) model.CartLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.lines[id]
}

func (f *fakeCartRepo) LinesByCart(_ context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CartLine
	for _, l := range f.lines {
		if l.CartID == cartID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) MarkReserved(_ context.Context, lineID, reservationID uuid.UUID, reservedAt, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	line, ok := f.lines[lineID]
	if !ok {
		return errors.New("line not found")
	}
	line.ReservationID = &reservationID
	line.ReservedAt = &reservedAt
	line.ExpiresAt = &expiresAt
	return nil
}

func (f *fakeCartRepo) ClearReservation(_ context.Context, lineID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if line, ok := f.lines[lineID]; ok {
		line.ReservationID = nil
		line.ReservedAt = nil
		line.ExpiresAt = nil
	}
	return nil
}

func (f *fakeCartRepo) ExpiredLines(_ context.Context, asOf time.Time, limit int) ([]model.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CartLine
	for _, l := range f.lines {
		if l.ExpiredAt(asOf) {
			out = append(out, *l)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCartRepo) ExtendReservations(_ context.Context, cartID uuid.UUID, until time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, l := range f.lines {
		if l.CartID == cartID && l.ReservationID != nil {
			u := until
			l.ExpiresAt = &u
			n++
		}
	}
	return n, nil
}

type fakeOrderLines struct {
	mu    sync.Mutex
	lines map[uuid.UUID][]model.OrderLine
}

func newFakeOrderLines() *fakeOrderLines {
	return &fakeOrderLines{lines: make(map[uuid.UUID][]model.OrderLine)}
}

func (f *fakeOrderLines) set(orderID uuid.UUID, lines ...model.OrderLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines[orderID] = lines
}

func (f *fakeOrderLines) OrderLines(_ context.Context, orderID uuid.UUID) ([]model.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[orderID], nil
}

// fakeTransferRepo mirrors the pending → completed/cancelled lifecycle and
// the execute-time re-validation against the shared stock fake.
type fakeTransferRepo struct {
	mu        sync.Mutex
	stocks    *fakeStockRepo
	transfers map[uuid.UUID]*model.StockTransfer
}

func newFakeTransferRepo(stocks *fakeStockRepo) *fakeTransferRepo {
	return &fakeTransferRepo{stocks: stocks, transfers: make(map[uuid.UUID]*model.StockTransfer)}
}

func (f *fakeTransferRepo) Create(_ context.Context, t *model.StockTransfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	f.transfers[t.ID] = &cp
	return nil
}

func (f *fakeTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StockTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transfers[id]
	if !ok {
		return nil, model.ErrTransferNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTransferRepo) FindAll(_ context.Context) ([]model.StockTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.StockTransfer, 0, len(f.transfers))
	for _, t := range f.transfers {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTransferRepo) Execute(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error) {
	f.mu.Lock()
	t, ok := f.transfers[id]
	if !ok {
		f.mu.Unlock()
		return nil, model.ErrTransferNotFound
	}
	if t.Status != model.TransferPending {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot execute a %s transfer", model.ErrInvalidTransition, t.Status)
	}
	key := t.Key()
	qty := t.Quantity
	from := t.FromLocationID
	to := t.ToLocationID
	f.mu.Unlock()

	source, err := f.stocks.FindByLocationAndKey(ctx, from, key)
	if err != nil {
		return nil, err
	}
	if source.FreeToPromise() < qty {
		return nil, &model.InsufficientStockError{Items: []model.Shortage{{
			Key: key, Requested: qty, Available: source.AvailableQuantity, Reserved: source.ReservedQuantity,
		}}}
	}

	audit := repository.AuditInfo{Reference: id.String(), Actor: actor}
	if _, err := f.stocks.AdjustQuantity(ctx, source.ID, -qty, model.AdjustmentTransferOut, audit, false); err != nil {
		return nil, err
	}
	dest, err := f.stocks.FindByLocationAndKey(ctx, to, key)
	if errors.Is(err, model.ErrStockNotFound) {
		f.stocks.seed(to, key, qty, 0)
	} else if err != nil {
		return nil, err
	} else {
		if _, err := f.stocks.AdjustQuantity(ctx, dest.ID, qty, model.AdjustmentTransferIn, audit, false); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	t.Status = model.TransferCompleted
	t.CompletedBy = &actor
	t.CompletedAt = &now
	cp := *t
	return &cp, nil
}

func (f *fakeTransferRepo) Cancel(_ context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transfers[id]
	if !ok {
		return nil, model.ErrTransferNotFound
	}
	if t.Status != model.TransferPending {
		return nil, fmt.Errorf("%w: cannot cancel a %s transfer", model.ErrInvalidTransition, t.Status)
	}
	t.Status = model.TransferCancelled
	t.UpdatedBy = actor
	cp := *t
	return &cp, nil
}
