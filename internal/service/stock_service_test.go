package service

import (
	"context"
	"errors"
	"testing"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	products map[uuid.UUID]*model.Product
	variants map[uuid.UUID]*model.ProductVariant
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: make(map[uuid.UUID]*model.Product),
		variants: make(map[uuid.UUID]*model.ProductVariant),
	}
}

func (f *fakeCatalog) addProduct(name, sku string) uuid.UUID {
	p := &model.Product{Name: name, SKU: sku}
	p.ID = uuid.New()
	f.products[p.ID] = p
	return p.ID
}

func (f *fakeCatalog) FindProduct(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, model.ErrStockNotFound
}

func (f *fakeCatalog) FindVariant(_ context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	if v, ok := f.variants[id]; ok {
		return v, nil
	}
	return nil, model.ErrStockNotFound
}

type fakeAdjustments struct {
	stocks *fakeStockRepo
}

func (f *fakeAdjustments) History(_ context.Context, inventoryID uuid.UUID) ([]model.StockAdjustment, error) {
	f.stocks.mu.Lock()
	defer f.stocks.mu.Unlock()
	var out []model.StockAdjustment
	for _, adj := range f.stocks.adjustments {
		if adj.InventoryID == inventoryID {
			out = append(out, adj)
		}
	}
	return out, nil
}

func (f *fakeAdjustments) FindByReference(_ context.Context, reference string) ([]model.StockAdjustment, error) {
	f.stocks.mu.Lock()
	defer f.stocks.mu.Unlock()
	var out []model.StockAdjustment
	for _, adj := range f.stocks.adjustments {
		if adj.ReferenceNumber == reference {
			out = append(out, adj)
		}
	}
	return out, nil
}

func newTestStockService(stocks *fakeStockRepo, catalog *fakeCatalog) StockService {
	return NewStockService(stocks, &fakeAdjustments{stocks: stocks}, catalog, nil, nil, zap.NewNop(), "")
}

func TestCreateStockRecordDenormalizesAndSeedsQuantity(t *testing.T) {
	stocks := newFakeStockRepo()
	catalog := newFakeCatalog()
	productID := catalog.addProduct("Blue Mug", "MUG-BLU")

	svc := newTestStockService(stocks, catalog)
	rec, err := svc.CreateStockRecord(context.Background(), &CreateStockRequest{
		LocationID:      uuid.New(),
		ProductID:       &productID,
		InitialQuantity: 25,
	}, "admin")
	if err != nil {
		t.Fatalf("CreateStockRecord: %v", err)
	}

	if rec.ProductName != "Blue Mug" || rec.SKU != "MUG-BLU" {
		t.Errorf("denormalized name/sku = %q/%q", rec.ProductName, rec.SKU)
	}
	if rec.AvailableQuantity != 25 {
		t.Errorf("available = %d, want 25", rec.AvailableQuantity)
	}
	if rec.Condition != model.ConditionSellable {
		t.Errorf("condition = %s, want sellable default", rec.Condition)
	}
	// The initial quantity arrives as an adjustment, not a bare column write.
	if adj := stocks.lastAdjustment(); adj.QuantityChange != 25 || adj.Type != model.AdjustmentIncrease {
		t.Errorf("initial stock adjustment = %+v", adj)
	}
}

func TestCreateStockRecordRequiresExactlyOneKey(t *testing.T) {
	stocks := newFakeStockRepo()
	catalog := newFakeCatalog()
	productID := catalog.addProduct("Blue Mug", "MUG-BLU")
	variantID := uuid.New()

	svc := newTestStockService(stocks, catalog)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *CreateStockRequest
	}{
		{"neither", &CreateStockRequest{LocationID: uuid.New()}},
		{"both", &CreateStockRequest{LocationID: uuid.New(), ProductID: &productID, VariantID: &variantID}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateStockRecord(ctx, tc.req, "admin"); !errors.Is(err, model.ErrInvalidTransition) {
			t.Errorf("%s: err = %v, want ErrInvalidTransition", tc.name, err)
		}
	}
}

func TestCreateStockRecordRejectsDuplicate(t *testing.T) {
	stocks := newFakeStockRepo()
	catalog := newFakeCatalog()
	productID := catalog.addProduct("Blue Mug", "MUG-BLU")
	locationID := uuid.New()

	svc := newTestStockService(stocks, catalog)
	ctx := context.Background()
	req := &CreateStockRequest{LocationID: locationID, ProductID: &productID}
	if _, err := svc.CreateStockRecord(ctx, req, "admin"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateStockRecord(ctx, req, "admin"); err == nil {
		t.Fatal("duplicate create succeeded")
	}
}

func TestAdjustZeroDeltaOnlyForCorrections(t *testing.T) {
	stocks := newFakeStockRepo()
	key := model.ProductKey(uuid.New())
	recID := stocks.seed(uuid.New(), key, 10, 0)

	svc := newTestStockService(stocks, newFakeCatalog())
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, recID, &AdjustRequest{
		Delta: 0, Type: model.AdjustmentIncrease, Reason: "noop",
	}, "admin"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("zero-delta increase err = %v, want ErrInvalidTransition", err)
	}

	rec, err := svc.Adjust(ctx, recID, &AdjustRequest{
		Delta: 0, Type: model.AdjustmentCorrection, Reason: "audit note",
	}, "admin")
	if err != nil {
		t.Fatalf("zero-delta correction: %v", err)
	}
	if rec.AvailableQuantity != 10 {
		t.Errorf("available = %d, want 10", rec.AvailableQuantity)
	}
}

func TestAdjustRefusesNegativeWithoutOverride(t *testing.T) {
	stocks := newFakeStockRepo()
	recID := stocks.seed(uuid.New(), model.ProductKey(uuid.New()), 5, 0)

	svc := newTestStockService(stocks, newFakeCatalog())
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, recID, &AdjustRequest{
		Delta: -8, Type: model.AdjustmentDecrease, Reason: "shrinkage",
	}, "admin"); !errors.Is(err, model.ErrNegativeResult) {
		t.Errorf("err = %v, want ErrNegativeResult", err)
	}

	rec, err := svc.Adjust(ctx, recID, &AdjustRequest{
		Delta: -8, Type: model.AdjustmentDecrease, Reason: "shrinkage", AllowNegative: true,
	}, "admin")
	if err != nil {
		t.Fatalf("Adjust allow_negative: %v", err)
	}
	if rec.AvailableQuantity != -3 {
		t.Errorf("available = %d, want -3", rec.AvailableQuantity)
	}
}

func TestHistoryByReference(t *testing.T) {
	stocks := newFakeStockRepo()
	loc := uuid.New()
	firstID := stocks.seed(loc, model.ProductKey(uuid.New()), 5, 0)
	secondID := stocks.seed(loc, model.ProductKey(uuid.New()), 9, 0)

	svc := newTestStockService(stocks, newFakeCatalog())
	ctx := context.Background()

	// Two records adjusted under one PO, a third adjustment outside it.
	for _, recID := range []uuid.UUID{firstID, secondID} {
		if _, err := svc.Adjust(ctx, recID, &AdjustRequest{
			Delta: 4, Type: model.AdjustmentIncrease, Reason: "delivery", Reference: "PO-1042",
		}, "admin"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Adjust(ctx, firstID, &AdjustRequest{
		Delta: -1, Type: model.AdjustmentDecrease, Reason: "shrinkage",
	}, "admin"); err != nil {
		t.Fatal(err)
	}

	trail, err := svc.HistoryByReference(ctx, "PO-1042")
	if err != nil {
		t.Fatalf("HistoryByReference: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("trail length = %d, want 2", len(trail))
	}
	for _, adj := range trail {
		if adj.ReferenceNumber != "PO-1042" {
			t.Errorf("reference = %q, want PO-1042", adj.ReferenceNumber)
		}
	}

	if _, err := svc.HistoryByReference(ctx, ""); err == nil {
		t.Error("empty reference accepted")
	}
}

func TestHistoryRequiresExistingRecord(t *testing.T) {
	stocks := newFakeStockRepo()
	recID := stocks.seed(uuid.New(), model.ProductKey(uuid.New()), 5, 0)

	svc := newTestStockService(stocks, newFakeCatalog())
	ctx := context.Background()

	if _, err := svc.History(ctx, uuid.New()); !errors.Is(err, model.ErrStockNotFound) {
		t.Errorf("history of unknown record err = %v, want ErrStockNotFound", err)
	}

	if _, err := svc.Adjust(ctx, recID, &AdjustRequest{
		Delta: 3, Type: model.AdjustmentIncrease, Reason: "delivery",
	}, "admin"); err != nil {
		t.Fatal(err)
	}
	history, err := svc.History(ctx, recID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	adj := history[0]
	if adj.QuantityBefore != 5 || adj.QuantityAfter != 8 || adj.QuantityChange != 3 {
		t.Errorf("snapshots = %d -> %d (delta %d), want 5 -> 8 (delta 3)",
			adj.QuantityBefore, adj.QuantityAfter, adj.QuantityChange)
	}
	if adj.AdjustedBy != "admin" || adj.Reason != "delivery" {
		t.Errorf("audit fields = %q/%q", adj.AdjustedBy, adj.Reason)
	}
}
