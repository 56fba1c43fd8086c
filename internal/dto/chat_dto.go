package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessageMetadataResponse struct {
	TokenCount int        `json:"tokenCount,omitempty"`
	DurationMs int64      `json:"durationMs"`
	Sources    []string   `json:"sources,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID                    `json:"id"`
	Content   string                       `json:"content"`
	Role      string                       `json:"role"`
	Timestamp time.Time                    `json:"timestamp"`
	Metadata  *ChatMessageMetadataResponse `json:"metadata,omitempty"`
}

type SendChatRequest struct {
	Message    string  `json:"message" validate:"required,max=10000"`
	SessionId  string  `json:"sessionId" validate:"omitempty,uuid"`
	WorkflowId *string `json:"workflowId" validate:"omitempty,max=200"`
}

type SendChatResponse struct {
	SessionId        uuid.UUID            `json:"sessionId"`
	UserMessage      *ChatMessageResponse `json:"userMessage"`
	AssistantMessage *ChatMessageResponse `json:"assistantMessage"`
	Session          *ChatSessionResponse `json:"session"`
}

type ChatHistoryResponse struct {
	Messages []*ChatMessageResponse `json:"messages"`
	Session  *ChatSessionResponse   `json:"session"`
}
