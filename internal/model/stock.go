package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StockCondition describes the physical state of the stock on a record.
type StockCondition string

const (
	ConditionSellable    StockCondition = "sellable"
	ConditionDamaged     StockCondition = "damaged"
	ConditionQuarantined StockCondition = "quarantined"
	ConditionExpired     StockCondition = "expired"
)

// StockStatus is derived from AvailableQuantity, never stored.
type StockStatus string

const (
	StatusOutOfStock StockStatus = "out_of_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusInStock    StockStatus = "in_stock"
)

// LowStockThreshold: available at or below this (and above zero) is low_stock.
const LowStockThreshold = 10

// StockKey identifies the unit a stock record tracks: exactly one of a
// product or a variant. Storage keeps two nullable columns, but every
// lookup must branch on which side of the union is set, so the key is
// opaque and constructed only through ProductKey/VariantKey.
type StockKey struct {
	id        uuid.UUID
	isVariant bool
}

func ProductKey(productID uuid.UUID) StockKey {
	return StockKey{id: productID}
}

func VariantKey(variantID uuid.UUID) StockKey {
	return StockKey{id: variantID, isVariant: true}
}

// KeyFor builds the key from the nullable column pair used on the wire.
func KeyFor(productID uuid.UUID, variantID *uuid.UUID) StockKey {
	if variantID != nil && *variantID != uuid.Nil {
		return VariantKey(*variantID)
	}
	return ProductKey(productID)
}

func (k StockKey) ID() uuid.UUID   { return k.id }
func (k StockKey) IsVariant() bool { return k.isVariant }
func (k StockKey) IsZero() bool    { return k.id == uuid.Nil }

func (k StockKey) String() string {
	if k.isVariant {
		return fmt.Sprintf("variant:%s", k.id)
	}
	return fmt.Sprintf("product:%s", k.id)
}

// StockRecord is the per-location ledger row for one product or variant.
// Mutated only through the reservation/transfer/adjustment paths; never
// hard-deleted (soft delete cascades with product deletion).
//
// Invariant: total physical stock = AvailableQuantity + ReservedQuantity.
// Reserved units are not subtracted from available at write time.
type StockRecord struct {
	BaseModel
	LocationID uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_location" json:"location_id"`
	Location   *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`

	// Exactly one of ProductID / VariantID is set (see StockKey).
	ProductID *uuid.UUID      `gorm:"type:uuid;index:idx_stock_product" json:"product_id,omitempty"`
	VariantID *uuid.UUID      `gorm:"type:uuid;index:idx_stock_variant" json:"variant_id,omitempty"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Variant   *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`

	AvailableQuantity int `gorm:"not null;default:0;check:chk_available_non_negative,available_quantity >= 0" json:"available_quantity"`
	ReservedQuantity  int `gorm:"not null;default:0;check:chk_reserved_non_negative,reserved_quantity >= 0" json:"reserved_quantity"`
	// IncomingQuantity comes from open purchase orders; informational only.
	IncomingQuantity int `gorm:"not null;default:0;check:chk_incoming_non_negative,incoming_quantity >= 0" json:"incoming_quantity"`

	Condition StockCondition `gorm:"type:varchar(20);not null;default:'sellable'" json:"condition"`

	// Denormalized for reporting
	ProductName string `gorm:"type:varchar(255)" json:"product_name"`
	SKU         string `gorm:"type:varchar(50);index" json:"sku"`

	LastStockMovementAt *time.Time `json:"last_stock_movement_at,omitempty"`

	// Cumulative analytics
	TotalSold      int64      `gorm:"not null;default:0" json:"total_sold"`
	TotalFulfilled int64      `gorm:"not null;default:0" json:"total_fulfilled"`
	LastSaleAt     *time.Time `json:"last_sale_at,omitempty"`
}

func (StockRecord) TableName() string {
	return "stock_records"
}

// Key returns the tagged product/variant key for this record.
func (s *StockRecord) Key() StockKey {
	if s.VariantID != nil && *s.VariantID != uuid.Nil {
		return VariantKey(*s.VariantID)
	}
	if s.ProductID != nil {
		return ProductKey(*s.ProductID)
	}
	return StockKey{}
}

// TotalStock is the true physical count on hand: available + reserved.
func (s *StockRecord) TotalStock() int {
	return s.AvailableQuantity + s.ReservedQuantity
}

// FreeToPromise is the quantity not already promised to anyone. Used only
// for availability decisions, never for total-stock accounting.
func (s *StockRecord) FreeToPromise() int {
	return s.AvailableQuantity - s.ReservedQuantity
}

// Status derives the stock status from the available quantity.
func (s *StockRecord) Status() StockStatus {
	switch {
	case s.AvailableQuantity == 0:
		return StatusOutOfStock
	case s.AvailableQuantity <= LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// StockRecordResponse shapes a ledger row for API responses, including the
// derived status and total.
type StockRecordResponse struct {
	ID                  uuid.UUID      `json:"id"`
	LocationID          uuid.UUID      `json:"location_id"`
	ProductID           *uuid.UUID     `json:"product_id,omitempty"`
	VariantID           *uuid.UUID     `json:"variant_id,omitempty"`
	ProductName         string         `json:"product_name"`
	SKU                 string         `json:"sku"`
	AvailableQuantity   int            `json:"available_quantity"`
	ReservedQuantity    int            `json:"reserved_quantity"`
	IncomingQuantity    int            `json:"incoming_quantity"`
	TotalStock          int            `json:"total_stock"`
	Condition           StockCondition `json:"condition"`
	Status              StockStatus    `json:"status"`
	TotalSold           int64          `json:"total_sold"`
	TotalFulfilled      int64          `json:"total_fulfilled"`
	LastSaleAt          *time.Time     `json:"last_sale_at,omitempty"`
	LastStockMovementAt *time.Time     `json:"last_stock_movement_at,omitempty"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func (s *StockRecord) ToResponse() StockRecordResponse {
	return StockRecordResponse{
		ID:                  s.ID,
		LocationID:          s.LocationID,
		ProductID:           s.ProductID,
		VariantID:           s.VariantID,
		ProductName:         s.ProductName,
		SKU:                 s.SKU,
		AvailableQuantity:   s.AvailableQuantity,
		ReservedQuantity:    s.ReservedQuantity,
		IncomingQuantity:    s.IncomingQuantity,
		TotalStock:          s.TotalStock(),
		Condition:           s.Condition,
		Status:              s.Status(),
		TotalSold:           s.TotalSold,
		TotalFulfilled:      s.TotalFulfilled,
		LastSaleAt:          s.LastSaleAt,
		LastStockMovementAt: s.LastStockMovementAt,
		UpdatedAt:           s.UpdatedAt,
	}
}
