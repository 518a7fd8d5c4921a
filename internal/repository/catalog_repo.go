package repository

import (
	"context"
	"errors"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository reads the catalog collaborator's tables: just the
// lookups the ledger needs for denormalization and archived checks.
type CatalogRepository interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error)
}

type catalogRepo struct {
	db *gorm.DB
}

func NewCatalogRepo(db *gorm.DB) CatalogRepository {
	return &catalogRepo{db}
}

func (r *catalogRepo) FindProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrStockNotFound
	}
	return &p, err
}

func (r *catalogRepo) FindVariant(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	var v model.ProductVariant
	err := r.db.WithContext(ctx).Preload("Product").First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrStockNotFound
	}
	return &v, err
}
