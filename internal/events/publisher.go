package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher delivers envelopes to subscribers
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// KafkaPublisher writes envelopes to one topic, keyed by correlation id so that all
// events for an order land on the same partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher builds an async writer for brokers/topic. Publish returns once the
// message is buffered; delivery failures are logged from the writer's completion hook.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
			Completion:   logDelivery,
		},
	}
}

func logDelivery(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		logrus.WithFields(logrus.Fields{
			"topic": m.Topic,
			"key":   string(m.Key),
			"error": err.Error(),
		}).Error("Event delivery failed")
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.EventType, err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.CorrelationID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	})
}

// Close flushes pending writes
func (p *KafkaPublisher) Close() error { return p.w.Close() }

// NopPublisher drops every event; used when no brokers are configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }
func (NopPublisher) Close() error { return nil }
