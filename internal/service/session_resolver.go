package service

import (
	"context"

	"flowchat-be/internal/entity"
	"flowchat-be/internal/repository/contract"
	"flowchat-be/pkg/apperror"

	"github.com/google/uuid"
)

// sessionResolver is the one place that turns a client supplied session id into
// a stored session. A supplied id that does not exist is always NotFound; a new
// session is only created when no id was supplied at all.
type sessionResolver struct {
	sessionRepo contract.ChatSessionRepository
}

func newSessionResolver(sessionRepo contract.ChatSessionRepository) *sessionResolver {
	return &sessionResolver{sessionRepo: sessionRepo}
}

func (r *sessionResolver) resolve(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error) {
	return r.sessionRepo.FindByID(ctx, id)
}

// resolveOrCreate returns the session for rawId, or a fresh one bound to
// workflowId when rawId is empty.
func (r *sessionResolver) resolveOrCreate(ctx context.Context, rawId string, workflowId *string) (*entity.ChatSession, error) {
	if rawId == "" {
		return r.sessionRepo.Create(ctx, workflowId)
	}
	id, err := uuid.Parse(rawId)
	if err != nil {
		return nil, apperror.Validation("sessionId must be a valid UUID")
	}
	return r.resolve(ctx, id)
}
