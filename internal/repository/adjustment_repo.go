package repository

import (
	"context"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdjustmentRepository is read-only: adjustment rows are written inside the
// stock repository's transactions so that ledger update and audit row share
// one unit of work. This interface only reconstructs history.
type AdjustmentRepository interface {
	History(ctx context.Context, inventoryID uuid.UUID) ([]model.StockAdjustment, error)
	FindByReference(ctx context.Context, reference string) ([]model.StockAdjustment, error)
}

type adjustmentRepo struct {
	db *gorm.DB
}

func NewAdjustmentRepo(db *gorm.DB) AdjustmentRepository {
	return &adjustmentRepo{db}
}

func (r *adjustmentRepo) History(ctx context.Context, inventoryID uuid.UUID) ([]model.StockAdjustment, error) {
	var adjustments []model.StockAdjustment
	err := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at ASC").
		Find(&adjustments).Error
	return adjustments, err
}

func (r *adjustmentRepo) FindByReference(ctx context.Context, reference string) ([]model.StockAdjustment, error) {
	var adjustments []model.StockAdjustment
	err := r.db.WithContext(ctx).
		Where("reference_number = ?", reference).
		Order("created_at ASC").
		Find(&adjustments).Error
	return adjustments, err
}
