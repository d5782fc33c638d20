// Package ingest publishes session lifecycle events to Kafka for downstream
// consumers (analytics, care-team dashboards).
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-companion/internal/session"
)

type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaPublisher{writer: w, logger: logger}
}

// Sink adapts the publisher to the session's event fan-out. Publishing is
// asynchronous and best-effort so a slow broker never blocks the session.
func (k *KafkaPublisher) Sink() session.Sink {
	return func(evt session.Event) {
		go k.publish(evt)
	}
}

func (k *KafkaPublisher) publish(evt session.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := json.Marshal(evt)
	if err != nil {
		k.logger.Warn("event marshal failed", "error", err)
		return
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(string(evt.Type)), Value: b}); err != nil {
		k.logger.Warn("event publish failed", "type", evt.Type, "error", err)
	}
}

func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
