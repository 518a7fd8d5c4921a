package repository

import (
	"context"
	"time"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CartRepository interface {
	LinesByCart(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error)
	MarkReserved(ctx context.Context, lineID, reservationID uuid.UUID, reservedAt, expiresAt time.Time) error
	ClearReservation(ctx context.Context, lineID uuid.UUID) error
	// ExpiredLines returns reserved lines whose hold lapsed before asOf.
	ExpiredLines(ctx context.Context, asOf time.Time, limit int) ([]model.CartLine, error)
	// ExtendReservations bumps expires_at for every active hold in a cart
	// and reports how many lines were touched.
	ExtendReservations(ctx context.Context, cartID uuid.UUID, until time.Time) (int64, error)
}

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepo(db *gorm.DB) CartRepository {
	return &cartRepo{db}
}

func (r *cartRepo) LinesByCart(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	var lines []model.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&lines).Error
	return lines, err
}

func (r *cartRepo) MarkReserved(ctx context.Context, lineID, reservationID uuid.UUID, reservedAt, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{
			"reservation_id": reservationID,
			"reserved_at":    reservedAt,
			"expires_at":     expiresAt,
		}).Error
}

func (r *cartRepo) ClearReservation(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.CartLine{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{
			"reservation_id": nil,
			"reserved_at":    nil,
			"expires_at":     nil,
		}).Error
}

func (r *cartRepo) ExpiredLines(ctx context.Context, asOf time.Time, limit int) ([]model.CartLine, error) {
	var lines []model.CartLine
	q := r.db.WithContext(ctx).
		Where("reservation_id IS NOT NULL AND expires_at IS NOT NULL AND expires_at < ?", asOf).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&lines).Error
	return lines, err
}

func (r *cartRepo) ExtendReservations(ctx context.Context, cartID uuid.UUID, until time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.CartLine{}).
		Where("cart_id = ? AND reservation_id IS NOT NULL", cartID).
		Update("expires_at", until)
	return res.RowsAffected, res.Error
}
