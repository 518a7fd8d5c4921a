package model

import (
	"time"

	"github.com/google/uuid"
)

// Default soft-hold TTLs for cart reservations.
const (
	CartHoldTTL     = 30 * time.Minute
	CheckoutHoldTTL = 60 * time.Minute
)

// CartLine is one product/variant line in a shopping cart. A reserved line
// carries a soft hold on the ledger: ReservationID/ReservedAt/ExpiresAt are
// set while ReservedQuantity on the matching StockRecord includes Quantity.
// The hold self-expires; the sweeper reclaims lapsed ones.
type CartLine struct {
	BaseModel
	CartID uuid.UUID `gorm:"type:uuid;not null;index:idx_cart_line_cart" json:"cart_id" validate:"uuid_required"`

	// Exactly one of ProductID / VariantID is set (see StockKey).
	ProductID *uuid.UUID `gorm:"type:uuid" json:"product_id,omitempty"`
	VariantID *uuid.UUID `gorm:"type:uuid" json:"variant_id,omitempty"`

	Quantity int `gorm:"not null;check:chk_cart_line_qty_positive,quantity > 0" json:"quantity" validate:"required,gt=0"`

	ReservationID *uuid.UUID `gorm:"type:uuid" json:"reservation_id,omitempty"`
	ReservedAt    *time.Time `json:"reserved_at,omitempty"`
	ExpiresAt     *time.Time `gorm:"index:idx_cart_line_expires" json:"expires_at,omitempty"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}

func (l *CartLine) Key() StockKey {
	if l.VariantID != nil && *l.VariantID != uuid.Nil {
		return VariantKey(*l.VariantID)
	}
	if l.ProductID != nil {
		return ProductKey(*l.ProductID)
	}
	return StockKey{}
}

// Reserved reports whether the line currently holds a reservation.
func (l *CartLine) Reserved() bool {
	return l.ReservationID != nil
}

// ExpiredAt reports whether the line's hold has lapsed as of now.
func (l *CartLine) ExpiredAt(now time.Time) bool {
	return l.Reserved() && l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}
