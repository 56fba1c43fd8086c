package controller

import (
	"fmt"

	"flowchat-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// sessionIdParam reads a session id path param. An id that is not a UUID can
// never name a stored session, so it is reported as not found.
func sessionIdParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := ctx.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NotFound(fmt.Sprintf("Session %s not found", raw))
	}
	return id, nil
}

// bindBody parses a JSON body into req. An empty body leaves req untouched.
func bindBody(ctx *fiber.Ctx, req interface{}) error {
	if len(ctx.Body()) == 0 {
		return nil
	}
	if err := ctx.BodyParser(req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	return nil
}
