package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stock movement events published to the stock.movements topic. Downstream
// consumers (order saga, analytics) key off x-event-type headers and the
// envelope's event_type.
const (
	EventStockReserved    = "StockReserved"
	EventStockReleased    = "StockReleased"
	EventStockFulfilled   = "StockFulfilled"
	EventStockRejected    = "StockRejected"
	EventStockReturned    = "StockReturned"
	EventStockAdjusted    = "StockAdjusted"
	EventStockTransferred = "StockTransferred"
)

const TopicStockMovements = "stock.movements"

type Envelope struct {
	EventID      string          `json:"event_id"`   // uuid
	EventType    string          `json:"event_type"` // one of the consts above
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"` // RFC3339
	Producer     string          `json:"producer"`    // e.g. "stock-ledger-api"
	Reference    string          `json:"reference,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// ---- Payload types per event ----

type MovementItem struct {
	InventoryID    uuid.UUID  `json:"inventory_id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Quantity       int        `json:"quantity"`
	AvailableAfter int        `json:"available_after"`
	ReservedAfter  int        `json:"reserved_after"`
}

type StockMovementPayload struct {
	Reference string         `json:"reference"` // order / cart / transfer id
	Items     []MovementItem `json:"items"`
}

type RejectedItem struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Requested int        `json:"requested"`
	Free      int        `json:"free"`
}

type StockRejectedPayload struct {
	Reference string         `json:"reference"`
	Reason    string         `json:"reason"` // e.g. INSUFFICIENT_STOCK
	Items     []RejectedItem `json:"items,omitempty"`
}

type StockTransferredPayload struct {
	TransferID     uuid.UUID  `json:"transfer_id"`
	FromLocationID uuid.UUID  `json:"from_location_id"`
	ToLocationID   uuid.UUID  `json:"to_location_id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	Quantity       int        `json:"quantity"`
}

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// NewEnvelope wraps a payload with the standard metadata.
func NewEnvelope(eventType, producer, reference string, payload any) Envelope {
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     producer,
		Reference:    reference,
		Payload:      MustMarshal(payload),
	}
}
