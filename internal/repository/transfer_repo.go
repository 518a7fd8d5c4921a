package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransferRepository owns the transfer lifecycle. Execute runs the whole
// two-sided move in one transaction: lock transfer, lock source row,
// re-validate availability (stock may have moved since creation), decrement
// source, create-or-increment destination, two adjustment rows, mark
// completed. On any failure the transfer stays pending.
type TransferRepository interface {
	Create(ctx context.Context, t *model.StockTransfer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockTransfer, error)
	FindAll(ctx context.Context) ([]model.StockTransfer, error)
	Execute(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error)
	Cancel(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error)
}

type transferRepo struct {
	db *gorm.DB
}

func NewTransferRepo(db *gorm.DB) TransferRepository {
	return &transferRepo{db}
}

func (r *transferRepo) Create(ctx context.Context, t *model.StockTransfer) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *transferRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockTransfer, error) {
	var t model.StockTransfer
	err := r.db.WithContext(ctx).
		Preload("FromLocation").Preload("ToLocation").
		First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrTransferNotFound
	}
	return &t, err
}

func (r *transferRepo) FindAll(ctx context.Context) ([]model.StockTransfer, error) {
	var transfers []model.StockTransfer
	err := r.db.WithContext(ctx).
		Preload("FromLocation").Preload("ToLocation").
		Order("created_at DESC").
		Find(&transfers).Error
	return transfers, err
}

func (r *transferRepo) Execute(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error) {
	var transfer model.StockTransfer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&transfer, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrTransferNotFound
		}
		if err != nil {
			return err
		}
		if transfer.Status != model.TransferPending {
			return fmt.Errorf("%w: cannot execute a %s transfer", model.ErrInvalidTransition, transfer.Status)
		}

		key := transfer.Key()

		// Lock and re-validate the source row; availability at creation
		// time means nothing by now.
		var source model.StockRecord
		err = scopeKey(
			tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("location_id = ?", transfer.FromLocationID),
			key,
		).First(&source).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrStockNotFound
		}
		if err != nil {
			return err
		}
		if source.FreeToPromise() < transfer.Quantity {
			return &model.InsufficientStockError{Items: []model.Shortage{{
				Key:       key,
				Requested: transfer.Quantity,
				Available: source.AvailableQuantity,
				Reserved:  source.ReservedQuantity,
			}}}
		}

		now := time.Now()
		audit := AuditInfo{
			Reason:    transfer.Reason,
			Reference: transfer.ID.String(),
			Actor:     actor,
		}

		// Source side.
		if err := tx.Model(&source).Updates(map[string]interface{}{
			"available_quantity":     gorm.Expr("available_quantity - ?", transfer.Quantity),
			"last_stock_movement_at": now,
			"updated_by":             actor,
		}).Error; err != nil {
			return err
		}
		sourceBefore := source.AvailableQuantity
		source.AvailableQuantity -= transfer.Quantity
		if err := appendAdjustment(tx, &source, model.AdjustmentTransferOut,
			-transfer.Quantity, sourceBefore, source.AvailableQuantity, audit); err != nil {
			return err
		}

		// Destination side: first transfer into a location creates the row.
		var dest model.StockRecord
		err = scopeKey(
			tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("location_id = ?", transfer.ToLocationID),
			key,
		).First(&dest).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			dest = model.StockRecord{
				LocationID:          transfer.ToLocationID,
				ProductID:           transfer.ProductID,
				VariantID:           transfer.VariantID,
				AvailableQuantity:   transfer.Quantity,
				Condition:           source.Condition,
				ProductName:         source.ProductName,
				SKU:                 source.SKU,
				LastStockMovementAt: &now,
			}
			dest.CreatedBy = actor
			dest.UpdatedBy = actor
			if err := tx.Create(&dest).Error; err != nil {
				return err
			}
			if err := appendAdjustment(tx, &dest, model.AdjustmentTransferIn,
				transfer.Quantity, 0, transfer.Quantity, audit); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			destBefore := dest.AvailableQuantity
			if err := tx.Model(&dest).Updates(map[string]interface{}{
				"available_quantity":     gorm.Expr("available_quantity + ?", transfer.Quantity),
				"last_stock_movement_at": now,
				"updated_by":             actor,
			}).Error; err != nil {
				return err
			}
			dest.AvailableQuantity += transfer.Quantity
			if err := appendAdjustment(tx, &dest, model.AdjustmentTransferIn,
				transfer.Quantity, destBefore, dest.AvailableQuantity, audit); err != nil {
				return err
			}
		}

		transfer.Status = model.TransferCompleted
		transfer.CompletedBy = &actor
		transfer.CompletedAt = &now
		transfer.UpdatedBy = actor
		return tx.Save(&transfer).Error
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepo) Cancel(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error) {
	var transfer model.StockTransfer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&transfer, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrTransferNotFound
		}
		if err != nil {
			return err
		}
		if transfer.Status != model.TransferPending {
			return fmt.Errorf("%w: cannot cancel a %s transfer", model.ErrInvalidTransition, transfer.Status)
		}
		// Nothing was moved yet, so no ledger mutation.
		transfer.Status = model.TransferCancelled
		transfer.UpdatedBy = actor
		return tx.Save(&transfer).Error
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}
