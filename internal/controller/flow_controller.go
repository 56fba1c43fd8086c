package controller

import (
	"flowchat-be/internal/pkg/serverutils"
	"flowchat-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
)

type IFlowController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

// flowController passes the engine's catalog and health documents through.
type flowController struct {
	catalog workflow.Catalog
}

func NewFlowController(catalog workflow.Catalog) IFlowController {
	return &flowController{catalog: catalog}
}

func (c *flowController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/flows")
	h.Get("", c.GetAll)
	// health routes go first so "health" is never taken for a flow id
	h.Get("/health", c.Health)
	h.Get("/health/*", c.Health)
	h.Get("/:id", c.Show)
}

func (c *flowController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.catalog.ListFlows(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get flows", res))
}

func (c *flowController) Show(ctx *fiber.Ctx) error {
	res, err := c.catalog.GetFlow(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get flow", res))
}

func (c *flowController) Health(ctx *fiber.Ctx) error {
	res, err := c.catalog.Health(ctx.UserContext(), ctx.Params("*"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Workflow engine health", res))
}
