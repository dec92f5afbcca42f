// Package publish emits assignment events to downstream consumers
// (recommendation and guardrail services). Publishing is optional and
// config-gated; the evaluation core never depends on it.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"persona-engine/internal/match"
)

// AssignmentEvent is the wire payload published per evaluated user.
type AssignmentEvent struct {
	UserID           string    `json:"user_id"`
	ReferenceDate    time.Time `json:"reference_date"`
	PersonaID        string    `json:"persona_id"`
	PriorityRank     int       `json:"priority_rank"`
	ResolutionReason string    `json:"resolution_reason"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Publisher delivers assignment events.
type Publisher interface {
	Publish(ctx context.Context, event AssignmentEvent) error
	Close() error
}

// KafkaPublisher produces assignment events onto a Kafka topic, keyed by
// user id so per-user ordering is preserved.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewKafkaPublisher connects a synchronous producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return newKafkaPublisher(producer, topic, logger), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "publisher").Logger(),
	}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event AssignmentEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal assignment event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send assignment event: %w", err)
	}

	p.logger.Debug().
		Str("user_id", event.UserID).
		Str("persona_id", event.PersonaID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("assignment event published")
	return nil
}

// Close shuts the underlying producer down.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// EventFromAssignment builds the wire payload for an assignment.
func EventFromAssignment(a match.AssignedPersona, generatedAt time.Time) AssignmentEvent {
	return AssignmentEvent{
		UserID:           a.UserID,
		ReferenceDate:    a.ReferenceDate,
		PersonaID:        a.PersonaID,
		PriorityRank:     a.PriorityRank,
		ResolutionReason: a.ResolutionReason,
		GeneratedAt:      generatedAt,
	}
}

var _ Publisher = (*KafkaPublisher)(nil)
