package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flowchat-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one forwarded event. A returned error naks the message.
type EventHandler func(ctx context.Context, event events.BaseEvent) error

// Subscriber reads forwarded chat events back from the EVENTS stream.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
	cc jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	if url == "" {
		return nil, fmt.Errorf("NATS url is empty")
	}

	nc, err := nats.Connect(url,
		nats.Name("flowchat-be-subscriber"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Subscriber{nc: nc, js: js}, nil
}

// Subscribe attaches handler to subject. An empty durable name gives an
// ephemeral consumer that only sees new messages.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	cfg := jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	if durableName == "" {
		cfg.DeliverPolicy = jetstream.DeliverNewPolicy
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		evt, err := DecodeEvent(msg.Subject(), msg.Headers().Get("Occurred-At"), msg.Data())
		if err != nil {
			// redelivery will not fix a bad payload
			_ = msg.Term()
			return
		}
		if err := handler(ctx, evt); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	s.cc = cc
	return nil
}

// DecodeEvent rebuilds an event from what Publisher put on the wire.
func DecodeEvent(subject, occurredAt string, data []byte) (events.BaseEvent, error) {
	eventType := strings.TrimPrefix(subject, SubjectPrefix+".")
	if eventType == "" || eventType == subject {
		return events.BaseEvent{}, fmt.Errorf("unexpected subject %q", subject)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return events.BaseEvent{}, fmt.Errorf("invalid event payload: %w", err)
	}

	at := time.Now().UTC()
	if occurredAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, occurredAt); err == nil {
			at = t
		}
	}

	return events.BaseEvent{Type: eventType, Data: payload, OccurredAt: at}, nil
}

func (s *Subscriber) Close() {
	if s.cc != nil {
		s.cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
