package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id         uuid.UUID
	Title      string
	Messages   []ChatMessage
	WorkflowId *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SessionPatch carries the only fields a session accepts from an explicit update.
type SessionPatch struct {
	Title      *string
	WorkflowId *string
}

// Clone returns a deep copy so callers never share memory with the store.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	out := *s
	if s.WorkflowId != nil {
		w := *s.WorkflowId
		out.WorkflowId = &w
	}
	out.Messages = make([]ChatMessage, len(s.Messages))
	for i := range s.Messages {
		out.Messages[i] = s.Messages[i].Clone()
	}
	return &out
}
