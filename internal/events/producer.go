package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer buffers stock movement events and flushes them to Kafka from a
// single goroutine. Async fire-and-forget: stock correctness never depends
// on the broker, the ledger row and adjustment log are the source of truth.
// A nil *Producer is a valid disabled producer.
type Producer struct {
	w       *kafka.Writer
	log     *zap.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	if p == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				close(p.inbox)
				for m := range p.inbox {
					p.write(m)
				}
				_ = p.w.Close()
				close(p.closeCh)
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					close(p.closeCh)
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.Warn("kafka publish failed", zap.Error(err))
	}
}

// Publish enqueues an envelope keyed by its reference so events for one
// order/cart/transfer land on one partition in order.
func (p *Producer) Publish(env Envelope) {
	if p == nil {
		return
	}
	msg := kafka.Message{
		Key:   []byte(env.Reference),
		Value: MustMarshal(env),
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}
	select {
	case p.inbox <- msg:
	default:
		p.log.Warn("event inbox full, dropping event", zap.String("event_type", env.EventType))
	}
}

// Close lets the flush goroutine drain remaining messages and exit.
func (p *Producer) Close() {
	if p == nil {
		return
	}
	close(p.inbox)
}

// WaitClosed blocks until the flush goroutine has finished.
func (p *Producer) WaitClosed() {
	if p == nil {
		return
	}
	<-p.closeCh
}
