package event

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventHandler forwards ledger events to a Kafka topic for the
// notification and audit consumers. Messages are keyed by aggregate ID so
// the events of one invoice, client or source stay ordered.
type KafkaEventHandler struct {
	writer     messageWriter
	serializer *EventSerializer
	topic      string
	logger     *zap.Logger
}

// NewKafkaEventHandler creates a handler writing to cfg.Topic on cfg.Brokers
func NewKafkaEventHandler(cfg config.KafkaConfig, logger *zap.Logger) *KafkaEventHandler {
	l := logger.Named("kafka").With(zap.String("topic", cfg.Topic))
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			l.Error(fmt.Sprintf(msg, args...))
		}),
	}
	return newKafkaEventHandler(w, cfg.Topic, l)
}

func newKafkaEventHandler(w messageWriter, topic string, logger *zap.Logger) *KafkaEventHandler {
	return &KafkaEventHandler{
		writer:     w,
		serializer: NewLedgerSerializer(),
		topic:      topic,
		logger:     logger,
	}
}

// Handle encodes the event and writes it to Kafka
func (h *KafkaEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	value, err := h.serializer.Encode(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: value,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "tenant_id", Value: []byte(event.TenantID().String())},
		},
	}
	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	h.logger.Debug("Event published",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()))
	return nil
}

// EventTypes subscribes the handler to every event
func (h *KafkaEventHandler) EventTypes() []string {
	return nil
}

// Close flushes pending messages and closes the writer
func (h *KafkaEventHandler) Close(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- h.writer.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out closing kafka writer for %s", h.topic)
	}
}

var _ shared.EventHandler = (*KafkaEventHandler)(nil)
