package service

import (
	"go-stock-ledger/internal/events"
	"go-stock-ledger/internal/ws"
)

// notifier fans a ledger movement out to the websocket hub (dashboards) and
// the Kafka producer (downstream consumers). Both sinks are optional and
// both are fire-and-forget: the ledger row and the adjustment log are the
// source of truth, a dropped notification loses nothing.
type notifier struct {
	hub      *ws.Hub
	producer *events.Producer
	service  string
}

// newNotifier stamps serviceName as the envelope producer; empty falls back
// to the module's default identity.
func newNotifier(hub *ws.Hub, producer *events.Producer, serviceName string) *notifier {
	if serviceName == "" {
		serviceName = "stock-ledger"
	}
	return &notifier{hub: hub, producer: producer, service: serviceName}
}

func (n *notifier) movement(eventType, action, reference, actor string, payload any) {
	if n == nil {
		return
	}
	if n.hub != nil {
		n.hub.Notify(ws.StockUpdate{
			Action:    action,
			Reference: reference,
			Actor:     actor,
			Data:      payload,
		})
	}
	n.producer.Publish(events.NewEnvelope(eventType, n.service, reference, payload))
}
