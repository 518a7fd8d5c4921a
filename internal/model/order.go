package model

import "github.com/google/uuid"

// OrderLineItem is the persisted order line written by the order module.
// The reservation engine never queries it directly; it goes through the
// OrderLineSource boundary and works with OrderLine values.
type OrderLineItem struct {
	BaseModel
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index:idx_order_line_order" json:"order_id" validate:"uuid_required"`
	OrderNumber string    `gorm:"type:varchar(50);index" json:"order_number"`

	// Exactly one of ProductID / VariantID is set (see StockKey).
	ProductID *uuid.UUID `gorm:"type:uuid" json:"product_id,omitempty"`
	VariantID *uuid.UUID `gorm:"type:uuid" json:"variant_id,omitempty"`

	Quantity int `gorm:"not null;check:chk_order_line_qty_positive,quantity > 0" json:"quantity" validate:"required,gt=0"`
}

func (OrderLineItem) TableName() string {
	return "order_line_items"
}

func (l *OrderLineItem) StockKey() StockKey {
	if l.VariantID != nil && *l.VariantID != uuid.Nil {
		return VariantKey(*l.VariantID)
	}
	if l.ProductID != nil {
		return ProductKey(*l.ProductID)
	}
	return StockKey{}
}

// OrderLine is the value the reservation engine consumes.
type OrderLine struct {
	Key      StockKey
	Quantity int
}
