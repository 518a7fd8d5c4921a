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

type CreateTransferRequest struct {
	FromLocationID uuid.UUID  `json:"from_location_id" validate:"uuid_required"`
	ToLocationID   uuid.UUID  `json:"to_location_id" validate:"uuid_required"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Quantity       int        `json:"quantity" validate:"required,gt=0"`
	Reason         string     `json:"reason"`
}

type TransferService interface {
	Create(ctx context.Context, req *CreateTransferRequest, actor string) (*model.StockTransfer, error)
	Execute(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error)
	Cancel(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.StockTransfer, error)
	List(ctx context.Context) ([]model.StockTransfer, error)
}

type transferService struct {
	transfers repository.TransferRepository
	stocks    repository.StockRepository
	notify    *notifier
	log       *zap.Logger
}

func NewTransferService(
	transfers repository.TransferRepository,
	stocks repository.StockRepository,
	hub *ws.Hub,
	producer *events.Producer,
	log *zap.Logger,
	serviceName string,
) TransferService {
	return &transferService{
		transfers: transfers,
		stocks:    stocks,
		notify:    newNotifier(hub, producer, serviceName),
		log:       log,
	}
}

func (s *transferService) Create(ctx context.Context, req *CreateTransferRequest, actor string) (*model.StockTransfer, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}
	if req.FromLocationID == req.ToLocationID {
		return nil, fmt.Errorf("%w: source and destination locations must differ", model.ErrInvalidTransition)
	}
	key := model.StockKey{}
	if req.ProductID != nil || req.VariantID != nil {
		key = model.KeyFor(valueOrNil(req.ProductID), req.VariantID)
	}
	if key.IsZero() {
		return nil, fmt.Errorf("%w: transfer needs a product or variant", model.ErrInvalidTransition)
	}

	// Availability check at creation time. Execute re-validates under the
	// row lock; this only keeps obviously doomed transfers out of the queue.
	source, err := s.stocks.FindByLocationAndKey(ctx, req.FromLocationID, key)
	if err != nil {
		return nil, err
	}
	if source.FreeToPromise() < req.Quantity {
		return nil, &model.InsufficientStockError{Items: []model.Shortage{{
			Key:       key,
			Requested: req.Quantity,
			Available: source.AvailableQuantity,
			Reserved:  source.ReservedQuantity,
		}}}
	}

	transfer := &model.StockTransfer{
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		ProductID:      req.ProductID,
		VariantID:      req.VariantID,
		Quantity:       req.Quantity,
		Status:         model.TransferPending,
		Reason:         req.Reason,
		RequestedBy:    actor,
	}
	transfer.CreatedBy = actor
	transfer.UpdatedBy = actor
	if err := s.transfers.Create(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

func (s *transferService) Execute(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error) {
	transfer, err := s.transfers.Execute(ctx, id, actor)
	if err != nil {
		if _, ok := model.IsInsufficientStock(err); ok {
			s.log.Warn("transfer execution blocked, stock moved since creation",
				zap.String("transfer_id", id.String()))
		}
		return nil, err
	}

	s.notify.movement(events.EventStockTransferred, "stock_transferred", transfer.ID.String(), actor,
		events.StockTransferredPayload{
			TransferID:     transfer.ID,
			FromLocationID: transfer.FromLocationID,
			ToLocationID:   transfer.ToLocationID,
			ProductID:      transfer.ProductID,
			VariantID:      transfer.VariantID,
			Quantity:       transfer.Quantity,
		})
	return transfer, nil
}

func (s *transferService) Cancel(ctx context.Context, id uuid.UUID, actor string) (*model.StockTransfer, error) {
	return s.transfers.Cancel(ctx, id, actor)
}

func (s *transferService) Get(ctx context.Context, id uuid.UUID) (*model.StockTransfer, error) {
	t, err := s.transfers.FindByID(ctx, id)
	if errors.Is(err, model.ErrTransferNotFound) {
		return nil, err
	}
	return t, err
}

func (s *transferService) List(ctx context.Context) ([]model.StockTransfer, error) {
	return s.transfers.FindAll(ctx)
}

func valueOrNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
