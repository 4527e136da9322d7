package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// TopicAttempts is the Kafka topic carrying attempt lifecycle events
const TopicAttempts = "exam.attempts"

// Event types published by the attempt lifecycle
const (
	EventAttemptStarted   = "attempt.started"
	EventAttemptSubmitted = "attempt.submitted"
	EventAttemptGraded    = "attempt.graded"
)

// AttemptEvent is the payload for attempt lifecycle events
type AttemptEvent struct {
	Type       string    `json:"type"`
	AttemptID  uuid.UUID `json:"attempt_id"`
	ExamID     uuid.UUID `json:"exam_id"`
	StudentID  string    `json:"student_id"`
	TotalScore *int      `json:"total_score,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes attempt lifecycle events
type Publisher interface {
	Publish(ctx context.Context, event AttemptEvent) error
	Close() error
}

// KafkaPublisher publishes events to Kafka via watermill
type KafkaPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewKafkaPublisher(brokers []string, logger *slog.Logger) (*KafkaPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaPublisher{
		publisher: publisher,
		logger:    logger,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event AttemptEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("attempt_id", event.AttemptID.String())

	if err := p.publisher.Publish(TopicAttempts, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("event published",
		"type", event.Type,
		"attempt_id", event.AttemptID)

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.publisher.Close()
}

// MockPublisher collects events in memory. Used in tests and when no
// broker is configured.
type MockPublisher struct {
	mu     sync.Mutex
	events []AttemptEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(ctx context.Context, event AttemptEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// GetPublishedEvents returns a copy of all events published so far
func (p *MockPublisher) GetPublishedEvents() []AttemptEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]AttemptEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MockPublisher) Close() error {
	return nil
}
