package kafka

import (
	"context"
	"encoding/json"

	"recovery-service/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes cart lifecycle events to Kafka.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, logger: logger}
}

// PublishCartEvent sends a cart lifecycle event keyed by cart id.
// Best-effort: failures are logged, never propagated.
func (p *Producer) PublishCartEvent(ctx context.Context, event models.CartEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal cart event", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.CartID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish cart event",
			zap.String("event_type", event.EventType),
			zap.String("cart_id", event.CartID),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("published cart event",
		zap.String("event_type", event.EventType),
		zap.String("cart_id", event.CartID),
	)
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
