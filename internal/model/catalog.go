package model

import "github.com/google/uuid"

// Catalog and location collaborators. Product CRUD, variants and location
// management live outside this service; these models carry just enough for
// the ledger to join against (identity, sku/name denormalization source,
// archived flag).

type Product struct {
	BaseModel
	SKU      string `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Name     string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Archived bool   `gorm:"not null;default:false;index" json:"archived"`
}

type ProductVariant struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	SKU       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}

type Location struct {
	BaseModel
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code" validate:"required"`
	Name string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
}
