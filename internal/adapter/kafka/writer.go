package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ride-geo-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces dispatch audit events to a Kafka topic.
// It implements resolver.EventPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the dispatch event topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and writes a single dispatch event. The event stream
// is an audit trail, so callers treat failures as non-fatal.
func (p *Publisher) Publish(ctx context.Context, ev domain.DispatchEvent) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a DispatchEvent into a Kafka message keyed by
// event kind, so consumers can partition resolutions and quotes separately.
func serializeToMessage(ev domain.DispatchEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dispatch event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.Kind),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
			{Key: "processed_at", Value: []byte(ev.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
