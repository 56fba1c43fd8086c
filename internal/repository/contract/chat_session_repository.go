package contract

import (
	"context"

	"flowchat-be/internal/entity"

	"github.com/google/uuid"
)

// ChatSessionRepository owns every chat session. Returned sessions are copies;
// callers route all changes back through the repository.
//
// Operations that target an id fail with an apperror NOT_FOUND when the session
// does not exist.
type ChatSessionRepository interface {
	Create(ctx context.Context, workflowId *string) (*entity.ChatSession, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error)
	// FindAll orders by UpdatedAt desc, newer sessions first on ties.
	FindAll(ctx context.Context) ([]*entity.ChatSession, error)
	AppendMessage(ctx context.Context, id uuid.UUID, message entity.ChatMessage) (*entity.ChatSession, error)
	Update(ctx context.Context, id uuid.UUID, patch entity.SessionPatch) (*entity.ChatSession, error)
	// Delete reports whether a session was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
