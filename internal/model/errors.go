package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStockNotFound    = errors.New("stock record not found")
	ErrTransferNotFound = errors.New("transfer not found")
	ErrNoOrderLines     = errors.New("no line items found for order")

	// ErrInvalidTransition covers illegal state moves: executing or
	// cancelling a non-pending transfer, same-location transfers,
	// non-positive quantities.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNegativeResult is returned when a fulfillment or adjustment would
	// drive available_quantity below zero without an explicit override.
	ErrNegativeResult = errors.New("operation would drive available quantity negative")
)

// Shortage describes one item that cannot be satisfied: how much was
// requested against what the ledger actually holds.
type Shortage struct {
	Key       StockKey `json:"-"`
	Requested int      `json:"requested"`
	Available int      `json:"available"`
	Reserved  int      `json:"reserved"`
}

// Free is the unpromised quantity the request was checked against.
func (s Shortage) Free() int { return s.Available - s.Reserved }

// InsufficientStockError enumerates every failing item so callers can
// correct a partial cart.
type InsufficientStockError struct {
	Items []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("%s: requested %d, free %d (available %d, reserved %d)",
			it.Key, it.Requested, it.Free(), it.Available, it.Reserved))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// IsInsufficientStock reports whether err is an InsufficientStockError and
// returns it for detail access.
func IsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}
