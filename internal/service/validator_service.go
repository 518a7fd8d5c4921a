package service

import (
	"context"
	"errors"
	"fmt"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
)

// AvailabilityRequest asks whether quantity units of a product (or one of
// its variants) can be promised to a new caller.
type AvailabilityRequest struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
}

func (r AvailabilityRequest) Key() model.StockKey {
	return model.KeyFor(r.ProductID, r.VariantID)
}

type AvailabilityResult struct {
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	Requested         int        `json:"requested"`
	Available         bool       `json:"available"`
	AvailableQuantity int        `json:"available_quantity"`
	ReservedQuantity  int        `json:"reserved_quantity"`
	Message           string     `json:"message,omitempty"`
}

// StockValidator is the read-only availability check shared by every
// mutating path. It decides against the unpromised pool
// (available − reserved); callers that must strictly prevent oversell
// re-validate under the row lock inside the mutation itself.
type StockValidator interface {
	ValidateAvailability(ctx context.Context, items []AvailabilityRequest) ([]AvailabilityResult, error)
}

type stockValidator struct {
	stocks repository.StockRepository
}

func NewStockValidator(stocks repository.StockRepository) StockValidator {
	return &stockValidator{stocks: stocks}
}

func (v *stockValidator) ValidateAvailability(ctx context.Context, items []AvailabilityRequest) ([]AvailabilityResult, error) {
	results := make([]AvailabilityResult, 0, len(items))
	for _, item := range items {
		result := AvailabilityResult{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Requested: item.Quantity,
		}

		available, reserved, err := v.stocks.Availability(ctx, item.Key())
		switch {
		case errors.Is(err, model.ErrStockNotFound):
			result.Message = "product not found or archived"
		case err != nil:
			return nil, err
		default:
			result.AvailableQuantity = available
			result.ReservedQuantity = reserved
			free := available - reserved
			if free >= item.Quantity {
				result.Available = true
			} else {
				result.Message = fmt.Sprintf("requested %d but only %d free (available %d, reserved %d)",
					item.Quantity, free, available, reserved)
			}
		}
		results = append(results, result)
	}
	return results, nil
}
