package repository

import (
	"context"
	"errors"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuditInfo travels with every mutating call so the adjustment row can be
// written in the same transaction as the ledger update.
type AuditInfo struct {
	Reason    string
	Reference string
	Actor     string
}

// StockStats for the overview endpoint.
type StockStats struct {
	TotalRecords int64 `json:"total_records"`
	OutOfStock   int64 `json:"out_of_stock"`
	LowStock     int64 `json:"low_stock"`
}

// StockRepository owns every mutation of stock_records. Each mutating method
// runs as one database transaction: ledger update plus its adjustment row
// commit or roll back together.
//
// Two disciplines, chosen per operation:
//   - oversell-sensitive paths (Reserve, AdjustQuantity) lock the row with
//     SELECT ... FOR UPDATE and re-validate under the lock;
//   - monotonic-safe paths (ReleaseReserved, the reserved decrement inside
//     Fulfill, Restock) use floor-clamped atomic updates and need no lock.
type StockRepository interface {
	Create(ctx context.Context, rec *model.StockRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockRecord, error)
	FindByKey(ctx context.Context, key model.StockKey) (*model.StockRecord, error)
	FindByLocationAndKey(ctx context.Context, locationID uuid.UUID, key model.StockKey) (*model.StockRecord, error)
	FindAll(ctx context.Context) ([]model.StockRecord, error)

	// Availability reads the free-to-promise pair for a key, joined against
	// the product's non-archived status. No side effects.
	Availability(ctx context.Context, key model.StockKey) (available int, reserved int, err error)

	Reserve(ctx context.Context, key model.StockKey, qty int, audit AuditInfo, allowOversell bool) (*model.StockRecord, error)
	ReleaseReserved(ctx context.Context, key model.StockKey, qty int, audit AuditInfo) (*model.StockRecord, error)
	Fulfill(ctx context.Context, key model.StockKey, qty int, audit AuditInfo, allowNegative bool) (*model.StockRecord, error)
	Restock(ctx context.Context, key model.StockKey, qty int, audit AuditInfo) (*model.StockRecord, error)
	AdjustQuantity(ctx context.Context, inventoryID uuid.UUID, delta int, adjType model.AdjustmentType, audit AuditInfo, allowNegative bool) (*model.StockRecord, error)

	Stats(ctx context.Context) (*StockStats, error)
}

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{db}
}

// scopeKey branches on which side of the product/variant union is set.
// Product lookups must pin variant_id IS NULL so a product row and its
// variants' rows never alias each other.
func scopeKey(q *gorm.DB, key model.StockKey) *gorm.DB {
	if key.IsVariant() {
		return q.Where("variant_id = ?", key.ID())
	}
	return q.Where("product_id = ? AND variant_id IS NULL", key.ID())
}

func (r *stockRepo) Create(ctx context.Context, rec *model.StockRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *stockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrStockNotFound
	}
	return &rec, err
}

func (r *stockRepo) FindByKey(ctx context.Context, key model.StockKey) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := scopeKey(r.db.WithContext(ctx), key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrStockNotFound
	}
	return &rec, err
}

func (r *stockRepo) FindByLocationAndKey(ctx context.Context, locationID uuid.UUID, key model.StockKey) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := scopeKey(r.db.WithContext(ctx).Where("location_id = ?", locationID), key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrStockNotFound
	}
	return &rec, err
}

func (r *stockRepo) FindAll(ctx context.Context) ([]model.StockRecord, error) {
	var recs []model.StockRecord
	err := r.db.WithContext(ctx).Preload("Location").Order("product_name ASC").Find(&recs).Error
	return recs, err
}

func (r *stockRepo) Availability(ctx context.Context, key model.StockKey) (int, int, error) {
	q := r.db.WithContext(ctx).Model(&model.StockRecord{})
	if key.IsVariant() {
		q = q.Joins("JOIN product_variants ON product_variants.id = stock_records.variant_id").
			Joins("JOIN products ON products.id = product_variants.product_id").
			Where("stock_records.variant_id = ?", key.ID())
	} else {
		q = q.Joins("JOIN products ON products.id = stock_records.product_id").
			Where("stock_records.product_id = ? AND stock_records.variant_id IS NULL", key.ID())
	}

	var row struct {
		AvailableQuantity int
		ReservedQuantity  int
	}
	err := q.Where("products.archived = ? AND products.deleted_at IS NULL", false).
		Select("stock_records.available_quantity, stock_records.reserved_quantity").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, model.ErrStockNotFound
	}
	if err != nil {
		return 0, 0, err
	}
	return row.AvailableQuantity, row.ReservedQuantity, nil
}

// lockByKey takes the row-level exclusive lock the oversell-sensitive paths
// re-validate under.
func lockByKey(tx *gorm.DB, key model.StockKey, out *model.StockRecord) error {
	err := scopeKey(tx.Clauses(clause.Locking{Strength: "UPDATE"}), key).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrStockNotFound
	}
	return err
}

func appendAdjustment(tx *gorm.DB, rec *model.StockRecord, adjType model.AdjustmentType, change, before, after int, audit AuditInfo) error {
	adj := &model.StockAdjustment{
		InventoryID:     rec.ID,
		Type:            adjType,
		QuantityChange:  change,
		QuantityBefore:  before,
		QuantityAfter:   after,
		Reason:          audit.Reason,
		ReferenceNumber: audit.Reference,
		AdjustedBy:      audit.Actor,
	}
	adj.CreatedBy = audit.Actor
	adj.UpdatedBy = audit.Actor
	return tx.Create(adj).Error
}

// Reserve increments reserved_quantity under a row lock. Available is
// untouched; the hold only narrows what is free to promise. The adjustment
// row is zero-delta: a reservation moves no physical stock.
func (r *stockRepo) Reserve(ctx context.Context, key model.StockKey, qty int, audit AuditInfo, allowOversell bool) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByKey(tx, key, &rec); err != nil {
			return err
		}
		if !allowOversell && rec.FreeToPromise() < qty {
			return &model.InsufficientStockError{Items: []model.Shortage{{
				Key:       key,
				Requested: qty,
				Available: rec.AvailableQuantity,
				Reserved:  rec.ReservedQuantity,
			}}}
		}

		now := time.Now()
		if err := tx.Model(&rec).Updates(map[string]interface{}{
			"reserved_quantity":      gorm.Expr("reserved_quantity + ?", qty),
			"last_stock_movement_at": now,
			"updated_by":             audit.Actor,
		}).Error; err != nil {
			return err
		}
		rec.ReservedQuantity += qty
		rec.LastStockMovementAt = &now

		return appendAdjustment(tx, &rec, model.AdjustmentCorrection, 0,
			rec.AvailableQuantity, rec.AvailableQuantity, audit)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReleaseReserved drops a hold. Monotonic-safe: GREATEST(0, reserved - qty)
// can never go negative, so no row lock is needed and concurrent releases
// are fine. Releasing more than is held floors at zero.
func (r *stockRepo) ReleaseReserved(ctx context.Context, key model.StockKey, qty int, audit AuditInfo) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := scopeKey(tx.Model(&model.StockRecord{}), key).Updates(map[string]interface{}{
			"reserved_quantity":      gorm.Expr("GREATEST(0, reserved_quantity - ?)", qty),
			"last_stock_movement_at": now,
			"updated_by":             audit.Actor,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrStockNotFound
		}
		if err := scopeKey(tx, key).First(&rec).Error; err != nil {
			return err
		}
		return appendAdjustment(tx, &rec, model.AdjustmentCorrection, 0,
			rec.AvailableQuantity, rec.AvailableQuantity, audit)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Fulfill converts a hold into a permanent deduction at shipment time:
// available -= qty and reserved = GREATEST(0, reserved - qty) in one update,
// plus the sale analytics. The available decrement is guarded by a
// conditional WHERE unless allowNegative, so the check and the mutation are
// one atomic statement.
func (r *stockRepo) Fulfill(ctx context.Context, key model.StockKey, qty int, audit AuditInfo, allowNegative bool) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		q := scopeKey(tx.Model(&model.StockRecord{}), key)
		if !allowNegative {
			q = q.Where("available_quantity >= ?", qty)
		}
		res := q.Updates(map[string]interface{}{
			"available_quantity":     gorm.Expr("available_quantity - ?", qty),
			"reserved_quantity":      gorm.Expr("GREATEST(0, reserved_quantity - ?)", qty),
			"total_sold":             gorm.Expr("total_sold + ?", qty),
			"total_fulfilled":        gorm.Expr("total_fulfilled + 1"),
			"last_sale_at":           now,
			"last_stock_movement_at": now,
			"updated_by":             audit.Actor,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Missing row and insufficient stock both land here; look again
			// to report the right error.
			if err := scopeKey(tx, key).First(&rec).Error; errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrStockNotFound
			} else if err != nil {
				return err
			}
			return model.ErrNegativeResult
		}
		if err := scopeKey(tx, key).First(&rec).Error; err != nil {
			return err
		}
		return appendAdjustment(tx, &rec, model.AdjustmentDecrease, -qty,
			rec.AvailableQuantity+qty, rec.AvailableQuantity, audit)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Restock puts returned units back on the shelf. Reserved is untouched;
// fulfillment already cleared the hold.
func (r *stockRepo) Restock(ctx context.Context, key model.StockKey, qty int, audit AuditInfo) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := scopeKey(tx.Model(&model.StockRecord{}), key).Updates(map[string]interface{}{
			"available_quantity":     gorm.Expr("available_quantity + ?", qty),
			"last_stock_movement_at": now,
			"updated_by":             audit.Actor,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrStockNotFound
		}
		if err := scopeKey(tx, key).First(&rec).Error; err != nil {
			return err
		}
		return appendAdjustment(tx, &rec, model.AdjustmentIncrease, qty,
			rec.AvailableQuantity-qty, rec.AvailableQuantity, audit)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// AdjustQuantity applies a signed admin delta under a row lock; the
// re-validation under the lock closes the check-then-act window.
func (r *stockRepo) AdjustQuantity(ctx context.Context, inventoryID uuid.UUID, delta int, adjType model.AdjustmentType, audit AuditInfo, allowNegative bool) (*model.StockRecord, error) {
	var rec model.StockRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", inventoryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrStockNotFound
		}
		if err != nil {
			return err
		}

		before := rec.AvailableQuantity
		after := before + delta
		if after < 0 && !allowNegative {
			return model.ErrNegativeResult
		}

		now := time.Now()
		if err := tx.Model(&rec).Updates(map[string]interface{}{
			"available_quantity":     after,
			"last_stock_movement_at": now,
			"updated_by":             audit.Actor,
		}).Error; err != nil {
			return err
		}
		rec.AvailableQuantity = after
		rec.LastStockMovementAt = &now

		return appendAdjustment(tx, &rec, adjType, delta, before, after, audit)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *stockRepo) Stats(ctx context.Context) (*StockStats, error) {
	var stats StockStats
	db := r.db.WithContext(ctx).Model(&model.StockRecord{})

	if err := db.Count(&stats.TotalRecords).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.StockRecord{}).
		Where("available_quantity = 0").Count(&stats.OutOfStock).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.StockRecord{}).
		Where("available_quantity > 0 AND available_quantity <= ?", model.LowStockThreshold).
		Count(&stats.LowStock).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
