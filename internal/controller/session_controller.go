package controller

import (
	"encoding/json"
	"strings"

	"flowchat-be/internal/dto"
	"flowchat-be/internal/pkg/serverutils"
	"flowchat-be/internal/service"
	"flowchat-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// Keys a client may never set through PATCH.
var immutableSessionKeys = []string{"id", "messages", "createdAt", "updatedAt"}

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
}

func NewSessionController(service service.ISessionService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Post("", c.Create)
	h.Get("", c.GetAll)
	h.Delete("", c.Clear)
	h.Get("/:id", c.Show)
	h.Patch("/:id", c.Update)
	h.Delete("/:id", c.Delete)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := bindBody(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *sessionController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	id, err := sessionIdParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Get(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *sessionController) Update(ctx *fiber.Ctx) error {
	id, err := sessionIdParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := rejectImmutableKeys(ctx.Body()); err != nil {
		return err
	}

	var req dto.UpdateSessionRequest
	if err := bindBody(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Update(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session updated", res))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	id, err := sessionIdParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.Delete(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session deleted", fiber.Map{"id": id}))
}

func (c *sessionController) Clear(ctx *fiber.Ctx) error {
	if err := c.service.Clear(ctx.UserContext()); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("All sessions cleared", nil))
}

func rejectImmutableKeys(body []byte) error {
	if len(body) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return apperror.Validation("Invalid request body")
	}

	var found []string
	for _, key := range immutableSessionKeys {
		if _, ok := raw[key]; ok {
			found = append(found, key)
		}
	}
	if len(found) > 0 {
		return apperror.Validation("Cannot update read-only fields: " + strings.Join(found, ", "))
	}
	return nil
}
