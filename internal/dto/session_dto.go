package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatSessionResponse struct {
	Id         uuid.UUID              `json:"id"`
	Title      string                 `json:"title"`
	Messages   []*ChatMessageResponse `json:"messages"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	WorkflowId *string                `json:"workflowId,omitempty"`
}

type CreateSessionRequest struct {
	WorkflowId *string `json:"workflowId" validate:"omitempty,max=200"`
}

// UpdateSessionRequest lists the only keys PATCH accepts. Immutable keys are
// rejected before the body is bound.
type UpdateSessionRequest struct {
	Title      *string `json:"title" validate:"omitempty,max=200"`
	WorkflowId *string `json:"workflowId" validate:"omitempty,max=200"`
}

type HealthResponse struct {
	Status              string `json:"status"`
	Sessions            int    `json:"sessions"`
	RealtimeConnections int    `json:"realtimeConnections"`
}
