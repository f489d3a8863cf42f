package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventRecommendationServed is the type of events emitted for each lookup.
const EventRecommendationServed = "recommendation.served"

// RecommendationEvent announces the recommendations computed for one product.
type RecommendationEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	RunID     string    `json:"run_id"`
	Product   string    `json:"product"`
	Items     []string  `json:"items"`
	Timestamp time.Time `json:"timestamp"`
}

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{writer: writer}
}

// PublishRecommendation publishes a RecommendationEvent keyed by product, so
// every event for a product lands on the same partition.
func (p *Producer) PublishRecommendation(ctx context.Context, runID, product string, items []string) error {
	if items == nil {
		items = []string{}
	}
	event := RecommendationEvent{
		EventID:   uuid.NewString(),
		EventType: EventRecommendationServed,
		RunID:     runID,
		Product:   product,
		Items:     items,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(product),
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventRecommendationServed)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
