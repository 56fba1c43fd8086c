package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"flowchat-be/internal/config"
	"flowchat-be/pkg/events"
	pktNats "flowchat-be/pkg/nats"

	"github.com/fatih/color"
)

// Tails chat turn events forwarded to NATS by the REST server.
func main() {
	cfg := config.Load()

	url := flag.String("nats", cfg.Events.NatsURL, "NATS url")
	durable := flag.String("durable", "", "durable consumer name (empty for new events only)")
	flag.Parse()

	sub, err := pktNats.NewSubscriber(*url)
	if err != nil {
		log.Fatalf("Failed to start subscriber: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subject := pktNats.SubjectPrefix + ".>"
	err = sub.Subscribe(ctx, subject, *durable, func(ctx context.Context, evt events.BaseEvent) error {
		data, _ := json.Marshal(evt.Data)
		line := fmt.Sprintf("%s %-20s %s", evt.OccurredAt.Format("15:04:05.000"), evt.Type, data)
		if evt.Type == events.ChatTurnFailed {
			color.Red("%s", line)
		} else {
			color.Green("%s", line)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	color.Cyan("Listening on %s (%s)", subject, *url)
	<-ctx.Done()
}
