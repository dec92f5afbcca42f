package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"persona-engine/internal/match"
)

func testEvent() AssignmentEvent {
	ref := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	return AssignmentEvent{
		UserID:           "u1",
		ReferenceDate:    ref,
		PersonaID:        "debt_pressure",
		PriorityRank:     1,
		ResolutionReason: "matched_highest_priority",
		GeneratedAt:      ref.Add(6 * time.Hour),
	}
}

func TestPublishSendsKeyedJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		require.Equal(t, "u1", string(key))
		require.Equal(t, "persona.assignments", msg.Topic)

		raw, err := msg.Value.Encode()
		require.NoError(t, err)
		var decoded AssignmentEvent
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.Equal(t, testEvent(), decoded)
		return nil
	})

	pub := newKafkaPublisher(producer, "persona.assignments", zerolog.Nop())
	require.NoError(t, pub.Publish(context.Background(), testEvent()))
	require.NoError(t, pub.Close())
}

func TestPublishWrapsProducerError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	sendErr := errors.New("broker unreachable")
	producer.ExpectSendMessageAndFail(sendErr)

	pub := newKafkaPublisher(producer, "persona.assignments", zerolog.Nop())
	err := pub.Publish(context.Background(), testEvent())
	require.ErrorIs(t, err, sendErr)
	require.NoError(t, pub.Close())
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := newKafkaPublisher(producer, "persona.assignments", zerolog.Nop())
	require.ErrorIs(t, pub.Publish(ctx, testEvent()), context.Canceled)
	require.NoError(t, pub.Close())
}

func TestEventFromAssignment(t *testing.T) {
	ref := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	gen := ref.Add(time.Hour)

	assigned := match.AssignedPersona{
		UserID:           "u1",
		ReferenceDate:    ref,
		PersonaID:        "steady_saver",
		PriorityRank:     3,
		ResolutionReason: match.ReasonHighestPriority,
	}

	event := EventFromAssignment(assigned, gen)
	require.Equal(t, "u1", event.UserID)
	require.Equal(t, "steady_saver", event.PersonaID)
	require.Equal(t, 3, event.PriorityRank)
	require.Equal(t, match.ReasonHighestPriority, event.ResolutionReason)
	require.Equal(t, gen, event.GeneratedAt)
}
