package service

import (
	"context"
	"errors"
	"fmt"

	"go-stock-ledger/internal/events"
	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/ws"
	"go-stock-ledger/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateStockRequest struct {
	LocationID      uuid.UUID            `json:"location_id" validate:"uuid_required"`
	ProductID       *uuid.UUID           `json:"product_id,omitempty"`
	VariantID       *uuid.UUID           `json:"variant_id,omitempty"`
	InitialQuantity int                  `json:"initial_quantity" validate:"gte=0"`
	Condition       model.StockCondition `json:"condition"`
}

type AdjustRequest struct {
	Delta         int                  `json:"delta"`
	Type          model.AdjustmentType `json:"adjustment_type" validate:"required,oneof=increase decrease correction write_off"`
	Reason        string               `json:"reason" validate:"required"`
	Reference     string               `json:"reference_number"` // PO / claim number, for reconciliation
	AllowNegative bool                 `json:"allow_negative"`
}

// StockService covers the admin and reporting surface of the ledger:
// bootstrap of new records, manual adjustments, history, overview reads.
type StockService interface {
	CreateStockRecord(ctx context.Context, req *CreateStockRequest, actor string) (*model.StockRecord, error)
	Adjust(ctx context.Context, inventoryID uuid.UUID, req *AdjustRequest, actor string) (*model.StockRecord, error)
	History(ctx context.Context, inventoryID uuid.UUID) ([]model.StockAdjustment, error)
	HistoryByReference(ctx context.Context, reference string) ([]model.StockAdjustment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.StockRecord, error)
	List(ctx context.Context) ([]model.StockRecord, error)
	Stats(ctx context.Context) (*repository.StockStats, error)
}

type stockService struct {
	stocks      repository.StockRepository
	adjustments repository.AdjustmentRepository
	catalog     repository.CatalogRepository
	notify      *notifier
	log         *zap.Logger
}

func NewStockService(
	stocks repository.StockRepository,
	adjustments repository.AdjustmentRepository,
	catalog repository.CatalogRepository,
	hub *ws.Hub,
	producer *events.Producer,
	log *zap.Logger,
	serviceName string,
) StockService {
	return &stockService{
		stocks:      stocks,
		adjustments: adjustments,
		catalog:     catalog,
		notify:      newNotifier(hub, producer, serviceName),
		log:         log,
	}
}

// CreateStockRecord gives a product or variant its first ledger row at a
// location, denormalizing name/sku from the catalog.
func (s *stockService) CreateStockRecord(ctx context.Context, req *CreateStockRequest, actor string) (*model.StockRecord, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	if (req.ProductID == nil) == (req.VariantID == nil) {
		return nil, fmt.Errorf("%w: exactly one of product_id or variant_id must be set", model.ErrInvalidTransition)
	}

	key := model.KeyFor(valueOrNil(req.ProductID), req.VariantID)

	var name, sku string
	if key.IsVariant() {
		variant, err := s.catalog.FindVariant(ctx, key.ID())
		if err != nil {
			return nil, err
		}
		name, sku = variant.Name, variant.SKU
	} else {
		product, err := s.catalog.FindProduct(ctx, key.ID())
		if err != nil {
			return nil, err
		}
		name, sku = product.Name, product.SKU
	}

	if _, err := s.stocks.FindByLocationAndKey(ctx, req.LocationID, key); err == nil {
		return nil, fmt.Errorf("stock record already exists for %s at this location", key)
	} else if !errors.Is(err, model.ErrStockNotFound) {
		return nil, err
	}

	condition := req.Condition
	if condition == "" {
		condition = model.ConditionSellable
	}
	rec := &model.StockRecord{
		LocationID:  req.LocationID,
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
		Condition:   condition,
		ProductName: name,
		SKU:         sku,
	}
	rec.CreatedBy = actor
	rec.UpdatedBy = actor
	if err := s.stocks.Create(ctx, rec); err != nil {
		return nil, err
	}

	if req.InitialQuantity > 0 {
		audit := repository.AuditInfo{Reason: "initial stock", Actor: actor}
		updated, err := s.stocks.AdjustQuantity(ctx, rec.ID, req.InitialQuantity, model.AdjustmentIncrease, audit, false)
		if err != nil {
			return nil, err
		}
		rec = updated
	}
	return rec, nil
}

func (s *stockService) Adjust(ctx context.Context, inventoryID uuid.UUID, req *AdjustRequest, actor string) (*model.StockRecord, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	if req.Delta == 0 && req.Type != model.AdjustmentCorrection {
		return nil, fmt.Errorf("%w: zero delta is only valid for corrections", model.ErrInvalidTransition)
	}

	audit := repository.AuditInfo{Reason: req.Reason, Reference: req.Reference, Actor: actor}
	rec, err := s.stocks.AdjustQuantity(ctx, inventoryID, req.Delta, req.Type, audit, req.AllowNegative)
	if err != nil {
		return nil, err
	}

	s.notify.movement(events.EventStockAdjusted, "stock_adjusted", inventoryID.String(), actor,
		events.StockMovementPayload{
			Reference: inventoryID.String(),
			Items:     []events.MovementItem{movementItem(rec, req.Delta)},
		})
	return rec, nil
}

func (s *stockService) History(ctx context.Context, inventoryID uuid.UUID) ([]model.StockAdjustment, error) {
	if _, err := s.stocks.FindByID(ctx, inventoryID); err != nil {
		return nil, err
	}
	return s.adjustments.History(ctx, inventoryID)
}

// HistoryByReference pulls every adjustment stamped with an order, cart,
// transfer or PO reference, across all affected records. This is the
// reconciliation view: one order's reserve/fulfill trail in one read.
func (s *stockService) HistoryByReference(ctx context.Context, reference string) ([]model.StockAdjustment, error) {
	if reference == "" {
		return nil, errors.New("reference is required")
	}
	return s.adjustments.FindByReference(ctx, reference)
}

func (s *stockService) Get(ctx context.Context, id uuid.UUID) (*model.StockRecord, error) {
	return s.stocks.FindByID(ctx, id)
}

func (s *stockService) List(ctx context.Context) ([]model.StockRecord, error) {
	return s.stocks.FindAll(ctx)
}

func (s *stockService) Stats(ctx context.Context) (*repository.StockStats, error) {
	return s.stocks.Stats(ctx)
}
