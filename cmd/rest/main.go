package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flowchat-be/internal/bootstrap"
	"flowchat-be/internal/config"
	"flowchat-be/internal/server"
	"flowchat-be/internal/tracer"

	"github.com/fatih/color"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	// 4. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)
	printSummary(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	// 6. Run until signalled
	select {
	case err := <-errCh:
		// Return rather than exit so the deferred cleanup still runs.
		if err != nil {
			log.Printf("Server stopped: %v", err)
		}
		return
	case <-ctx.Done():
		color.Yellow("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}

func printSummary(cfg *config.Config) {
	color.Cyan("flowchat-be")
	color.Green("  http      http://localhost:%s/api", cfg.App.Port)
	color.Green("  realtime  ws://localhost:%s/ws", cfg.App.Port)
	color.White("  engine    %s", cfg.Workflow.BaseURL)
	if cfg.Workflow.DefaultFlowID == "" {
		color.Yellow("  flow      none (set WORKFLOW_DEFAULT_FLOW_ID)")
	} else {
		color.White("  flow      %s", cfg.Workflow.DefaultFlowID)
	}
	if cfg.Events.NatsURL == "" {
		color.Yellow("  events    in-process only (NATS_URL not set)")
	} else {
		color.White("  events    %s", cfg.Events.NatsURL)
	}
}
