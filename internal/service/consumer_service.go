package service

import (
	"context"
	"time"

	"flowchat-be/internal/pkg/logger"
	"flowchat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const forwardTimeout = 5 * time.Second

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder ships events off-process. *nats.Publisher satisfies it.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	forwarder EventForwarder
	logger    logger.ILogger
}

// NewConsumerService builds the chat event consumer. forwarder may be nil when no
// broker is configured; events are then only logged.
func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	forwarder EventForwarder,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		forwarder: forwarder,
		logger:    logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: a nack on a gochannel redelivers immediately, and
// neither a bad payload nor a broker outage gets better by retrying here.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	evt, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("EVENTS", "Dropping malformed chat event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	details := map[string]interface{}{
		"type":        evt.Type,
		"occurred_at": evt.OccurredAt,
	}
	for k, v := range evt.Data {
		details[k] = v
	}
	if evt.Type == events.ChatTurnFailed {
		cs.logger.Warn("EVENTS", "Chat turn failed", details)
	} else {
		cs.logger.Info("EVENTS", "Chat turn completed", details)
	}

	if cs.forwarder == nil {
		return
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forwardTimeout)
	defer cancel()
	if err := cs.forwarder.Publish(fctx, evt); err != nil {
		cs.logger.Warn("EVENTS", "Failed to forward chat event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}
