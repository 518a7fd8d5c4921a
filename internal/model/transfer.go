package model

import (
	"time"

	"github.com/google/uuid"
)

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// StockTransfer moves stock between two locations. It is created pending,
// then either completed (the two-sided ledger mutation) or cancelled.
// Completed and cancelled are terminal.
type StockTransfer struct {
	BaseModel
	FromLocationID uuid.UUID `gorm:"type:uuid;not null;index" json:"from_location_id" validate:"uuid_required"`
	ToLocationID   uuid.UUID `gorm:"type:uuid;not null;index" json:"to_location_id" validate:"uuid_required"`
	FromLocation   *Location `gorm:"foreignKey:FromLocationID" json:"from_location,omitempty"`
	ToLocation     *Location `gorm:"foreignKey:ToLocationID" json:"to_location,omitempty"`

	// Exactly one of ProductID / VariantID is set (see StockKey).
	ProductID *uuid.UUID `gorm:"type:uuid;index" json:"product_id,omitempty"`
	VariantID *uuid.UUID `gorm:"type:uuid;index" json:"variant_id,omitempty"`

	Quantity int            `gorm:"not null;check:chk_transfer_qty_positive,quantity > 0" json:"quantity" validate:"required,gt=0"`
	Status   TransferStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Reason   string         `gorm:"type:text" json:"reason"`

	RequestedBy string     `gorm:"type:varchar(255)" json:"requested_by"`
	CompletedBy *string    `gorm:"type:varchar(255)" json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (StockTransfer) TableName() string {
	return "stock_transfers"
}

func (t *StockTransfer) Key() StockKey {
	if t.VariantID != nil && *t.VariantID != uuid.Nil {
		return VariantKey(*t.VariantID)
	}
	if t.ProductID != nil {
		return ProductKey(*t.ProductID)
	}
	return StockKey{}
}
