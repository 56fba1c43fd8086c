package bootstrap

import (
	"log"

	"flowchat-be/internal/config"
	"flowchat-be/internal/controller"
	"flowchat-be/internal/handler"
	"flowchat-be/internal/pkg/logger"
	"flowchat-be/internal/repository/memory"
	"flowchat-be/internal/service"
	"flowchat-be/internal/websocket"
	"flowchat-be/pkg/workflow"

	pktNats "flowchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	ChatController    controller.IChatController
	FlowController    controller.IFlowController
	HealthController  controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
}

// Overrides lets tests swap infrastructure before wiring.
type Overrides struct {
	Logger         logger.ILogger
	RealtimeLogger logger.ILogger
	Invoker        workflow.Invoker
	Catalog        workflow.Catalog
}

func NewContainer(cfg *config.Config) *Container {
	return NewContainerWith(cfg, Overrides{})
}

func NewContainerWith(cfg *config.Config, o Overrides) *Container {
	// 1. Core Facades
	sysLogger := o.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	}
	wsLogger := o.RealtimeLogger
	if wsLogger == nil {
		wsLogger = logger.NewIsolatedLogger(cfg.App.RealtimeLogFilePath)
	}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NopLogger{},
	)

	var natsPub *pktNats.Publisher
	var forwarder service.EventForwarder
	if cfg.Events.NatsURL != "" {
		p, err := pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = p
			forwarder = p
		}
	}

	// 3. Workflow engine
	workflowClient := workflow.NewClient(workflow.Config{
		BaseURL:       cfg.Workflow.BaseURL,
		APIKey:        cfg.Workflow.APIKey,
		DefaultFlowID: cfg.Workflow.DefaultFlowID,
		Timeout:       cfg.Workflow.Timeout,
		Tweaks:        cfg.Workflow.Tweaks,
	})
	var invoker workflow.Invoker = workflowClient
	if o.Invoker != nil {
		invoker = o.Invoker
	}
	var catalog workflow.Catalog = workflow.NewCatalogClient(workflowClient, cfg.Workflow.CatalogTTL)
	if o.Catalog != nil {
		catalog = o.Catalog
	}

	// 4. Storage
	sessionRepo := memory.NewSessionRepository()

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Events.ChatTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, cfg.Events.ChatTopic, forwarder, sysLogger)

	sessionService := service.NewSessionService(sessionRepo, sysLogger)
	chatService := service.NewChatService(sessionRepo, invoker, catalog, publisherService, sysLogger)

	// 6. Realtime
	wsHub := websocket.NewHub(wsLogger)
	go wsHub.Run()

	// 7. Controllers
	return &Container{
		SessionController: controller.NewSessionController(sessionService),
		ChatController:    controller.NewChatController(chatService),
		FlowController:    controller.NewFlowController(catalog),
		HealthController:  controller.NewHealthController(sessionService, wsHub),

		ConsumerService: consumerService,

		RealtimeHandler: handler.NewRealtimeHandler(wsHub, wsLogger),
		WebSocketHub:    wsHub,

		Logger: sysLogger,

		pubSub:  pubSub,
		natsPub: natsPub,
	}
}

// Close releases the event bus and broker connection.
func (c *Container) Close() {
	if c.WebSocketHub != nil {
		c.WebSocketHub.Stop()
	}
	if c.pubSub != nil {
		_ = c.pubSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	_ = c.Logger.Sync()
}
