package repository

import (
	"context"

	"go-stock-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderLineSource is the boundary between the reservation engine and the
// order module: the engine consumes line values through this interface
// instead of reaching into order storage itself.
type OrderLineSource interface {
	OrderLines(ctx context.Context, orderID uuid.UUID) ([]model.OrderLine, error)
}

type orderLineSource struct {
	db *gorm.DB
}

func NewOrderLineSource(db *gorm.DB) OrderLineSource {
	return &orderLineSource{db}
}

func (s *orderLineSource) OrderLines(ctx context.Context, orderID uuid.UUID) ([]model.OrderLine, error) {
	var items []model.OrderLineItem
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	lines := make([]model.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, model.OrderLine{Key: it.StockKey(), Quantity: it.Quantity})
	}
	return lines, nil
}
