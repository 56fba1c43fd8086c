package controller

import (
	"context"

	"flowchat-be/internal/dto"
	"flowchat-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type SessionCounter interface {
	Count(ctx context.Context) (int, error)
}

type ConnectionCounter interface {
	Count() int
}

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	sessions    SessionCounter
	connections ConnectionCounter
}

func NewHealthController(sessions SessionCounter, connections ConnectionCounter) IHealthController {
	return &healthController{sessions: sessions, connections: connections}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	count, err := c.sessions.Count(ctx.UserContext())
	if err != nil {
		return err
	}

	res := dto.HealthResponse{
		Status:   "ok",
		Sessions: count,
	}
	if c.connections != nil {
		res.RealtimeConnections = c.connections.Count()
	}
	return ctx.JSON(serverutils.SuccessResponse("Service healthy", res))
}
