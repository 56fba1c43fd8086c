package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flowchat-be/internal/pkg/logger"
	"flowchat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingForwarder struct {
	mu       sync.Mutex
	received []events.Event
	err      error
}

func (f *recordingForwarder) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, event)
	return f.err
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func newTestPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}

func TestConsumerService_ForwardsEvents(t *testing.T) {
	pubSub := newTestPubSub()
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zapcore.DebugLevel)
	forwarder := &recordingForwarder{}
	consumer := NewConsumerService(pubSub, "chat.events", forwarder, logger.FromZap(zap.New(core)))
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("chat.events", pubSub)
	require.NoError(t, publisher.Publish(ctx, events.BaseEvent{
		Type:       events.ChatTurnCompleted,
		Data:       map[string]interface{}{"session_id": "s1"},
		OccurredAt: time.Now(),
	}))
	require.NoError(t, publisher.Publish(ctx, events.BaseEvent{
		Type:       events.ChatTurnFailed,
		Data:       map[string]interface{}{"session_id": "s1", "error_kind": "UPSTREAM_ERROR"},
		OccurredAt: time.Now(),
	}))

	require.Eventually(t, func() bool { return forwarder.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	forwarder.mu.Lock()
	types := []string{}
	for _, e := range forwarder.received {
		types = append(types, e.EventType())
		assert.Equal(t, "s1", e.Payload()["session_id"])
	}
	forwarder.mu.Unlock()
	assert.ElementsMatch(t, []string{events.ChatTurnCompleted, events.ChatTurnFailed}, types)

	assert.Equal(t, 1, logs.FilterMessage("Chat turn failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Chat turn completed").Len())
}

func TestConsumerService_SurvivesBadPayloadAndForwardErrors(t *testing.T) {
	pubSub := newTestPubSub()
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zapcore.DebugLevel)
	forwarder := &recordingForwarder{err: errors.New("nats down")}
	consumer := NewConsumerService(pubSub, "chat.events", forwarder, logger.FromZap(zap.New(core)))
	require.NoError(t, consumer.Consume(ctx))

	require.NoError(t, pubSub.Publish("chat.events", message.NewMessage(watermill.NewUUID(), []byte("garbage"))))
	require.NoError(t, NewPublisherService("chat.events", pubSub).Publish(ctx, events.BaseEvent{
		Type:       events.ChatTurnCompleted,
		Data:       map[string]interface{}{},
		OccurredAt: time.Now(),
	}))

	require.Eventually(t, func() bool { return forwarder.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return logs.FilterMessage("Failed to forward chat event").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("Dropping malformed chat event").Len())
}

func TestConsumerService_WithoutForwarder(t *testing.T) {
	pubSub := newTestPubSub()
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zapcore.DebugLevel)
	consumer := NewConsumerService(pubSub, "chat.events", nil, logger.FromZap(zap.New(core)))
	require.NoError(t, consumer.Consume(ctx))

	require.NoError(t, NewPublisherService("chat.events", pubSub).Publish(ctx, events.BaseEvent{
		Type:       events.ChatTurnCompleted,
		OccurredAt: time.Now(),
	}))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Chat turn completed").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
