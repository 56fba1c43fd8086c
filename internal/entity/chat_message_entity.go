package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id        uuid.UUID
	Content   string
	Role      string
	Timestamp time.Time
	Metadata  *ChatMessageMetadata
}

type ChatMessageMetadata struct {
	TokenCount int
	DurationMs int64
	Sources    []string
	Timestamp  *time.Time
}

func (m ChatMessage) Clone() ChatMessage {
	if m.Metadata == nil {
		return m
	}
	meta := *m.Metadata
	if m.Metadata.Sources != nil {
		meta.Sources = append([]string(nil), m.Metadata.Sources...)
	}
	if m.Metadata.Timestamp != nil {
		ts := *m.Metadata.Timestamp
		meta.Timestamp = &ts
	}
	m.Metadata = &meta
	return m
}
