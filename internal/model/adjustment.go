package model

import (
	"time"

	"github.com/google/uuid"
)

type AdjustmentType string

const (
	AdjustmentIncrease    AdjustmentType = "increase"
	AdjustmentDecrease    AdjustmentType = "decrease"
	AdjustmentCorrection  AdjustmentType = "correction"
	AdjustmentWriteOff    AdjustmentType = "write_off"
	AdjustmentTransferIn  AdjustmentType = "transfer_in"
	AdjustmentTransferOut AdjustmentType = "transfer_out"
)

// StockAdjustment is one immutable audit row. Every mutating operation on a
// StockRecord appends one, including zero-delta rows for reservation events
// so that holds stay traceable. Rows are never edited or reversed; they only
// go away when the parent StockRecord is deleted.
type StockAdjustment struct {
	BaseModel
	InventoryID uuid.UUID    `gorm:"type:uuid;not null;index:idx_adjustment_inventory" json:"inventory_id" validate:"uuid_required"`
	Inventory   *StockRecord `gorm:"foreignKey:InventoryID;constraint:OnDelete:CASCADE" json:"-"`

	Type AdjustmentType `gorm:"type:varchar(20);not null" json:"adjustment_type" validate:"required,oneof=increase decrease correction write_off transfer_in transfer_out"`

	// Signed delta applied to available_quantity, with before/after
	// snapshots taken in the same unit of work.
	QuantityChange int `gorm:"not null" json:"quantity_change"`
	QuantityBefore int `gorm:"not null" json:"quantity_before"`
	QuantityAfter  int `gorm:"not null" json:"quantity_after"`

	Reason          string `gorm:"type:text" json:"reason"`
	ReferenceNumber string `gorm:"type:varchar(100);index" json:"reference_number,omitempty"` // order / transfer id
	AdjustedBy      string `gorm:"type:varchar(255)" json:"adjusted_by"`

	ApprovedBy *string    `gorm:"type:varchar(255)" json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

func (StockAdjustment) TableName() string {
	return "stock_adjustments"
}
