package service

import (
	"context"
	"testing"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestSweepReleasesOnlyLapsedHolds(t *testing.T) {
	stocks := newFakeStockRepo()
	carts := newFakeCartRepo()
	orders := newFakeOrderLines()

	key := model.ProductKey(uuid.New())
	recID := stocks.seed(uuid.New(), key, 50, 0)

	cartID := uuid.New()
	expiredLine := carts.addLine(cartID, key, 4)
	freshLine := carts.addLine(cartID, key, 6)

	svc := newTestReservationService(stocks, carts, orders)
	ctx := context.Background()
	if err := svc.ReserveCartStock(ctx, cartID, "shopper", time.Hour); err != nil {
		t.Fatalf("ReserveCartStock: %v", err)
	}
	// Backdate one hold past its expiry.
	line := carts.line(expiredLine)
	past := time.Now().Add(-time.Minute)
	if err := carts.MarkReserved(ctx, expiredLine, *line.ReservationID, *line.ReservedAt, past); err != nil {
		t.Fatal(err)
	}

	sweeper := NewExpirySweeper(svc, carts, nil, zap.NewNop(), time.Minute, 100)
	n, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("released %d holds, want 1", n)
	}

	if line := carts.line(expiredLine); line.Reserved() {
		t.Error("expired line still marked reserved")
	}
	if line := carts.line(freshLine); !line.Reserved() {
		t.Error("fresh hold was released")
	}
	if rec := stocks.snapshot(recID); rec.ReservedQuantity != 6 {
		t.Errorf("reserved = %d, want 6 (only the lapsed hold releases)", rec.ReservedQuantity)
	}
}

func TestSweepIsReentrant(t *testing.T) {
	stocks := newFakeStockRepo()
	carts := newFakeCartRepo()
	orders := newFakeOrderLines()

	key := model.ProductKey(uuid.New())
	recID := stocks.seed(uuid.New(), key, 50, 0)

	cartID := uuid.New()
	lineID := carts.addLine(cartID, key, 4)

	svc := newTestReservationService(stocks, carts, orders)
	ctx := context.Background()
	if err := svc.ReserveCartStock(ctx, cartID, "shopper", time.Hour); err != nil {
		t.Fatalf("ReserveCartStock: %v", err)
	}
	line := carts.line(lineID)
	past := time.Now().Add(-time.Minute)
	if err := carts.MarkReserved(ctx, lineID, *line.ReservationID, *line.ReservedAt, past); err != nil {
		t.Fatal(err)
	}

	sweeper := NewExpirySweeper(svc, carts, nil, zap.NewNop(), time.Minute, 100)
	if n, err := sweeper.Sweep(ctx); err != nil || n != 1 {
		t.Fatalf("first sweep: n=%d err=%v, want 1/nil", n, err)
	}
	// A cleared line no longer matches the scan; a second pass over the same
	// state must release nothing.
	if n, err := sweeper.Sweep(ctx); err != nil || n != 0 {
		t.Fatalf("second sweep: n=%d err=%v, want 0/nil", n, err)
	}
	if rec := stocks.snapshot(recID); rec.ReservedQuantity != 0 {
		t.Errorf("reserved = %d after double sweep, want 0", rec.ReservedQuantity)
	}
}

func TestSweepEmpty(t *testing.T) {
	carts := newFakeCartRepo()
	svc := newTestReservationService(newFakeStockRepo(), carts, newFakeOrderLines())
	sweeper := NewExpirySweeper(svc, carts, nil, zap.NewNop(), time.Minute, 100)
	if n, err := sweeper.Sweep(context.Background()); err != nil || n != 0 {
		t.Fatalf("sweep of empty cart set: n=%d err=%v", n, err)
	}
}
