package mapper

import (
	"flowchat-be/internal/dto"
	"flowchat-be/internal/entity"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) SessionToResponse(s *entity.ChatSession) *dto.ChatSessionResponse {
	if s == nil {
		return nil
	}

	return &dto.ChatSessionResponse{
		Id:         s.Id,
		Title:      s.Title,
		Messages:   m.MessagesToResponse(s.Messages),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		WorkflowId: s.WorkflowId,
	}
}

func (m *ChatMapper) SessionsToResponse(sessions []*entity.ChatSession) []*dto.ChatSessionResponse {
	out := make([]*dto.ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, m.SessionToResponse(s))
	}
	return out
}

func (m *ChatMapper) MessagesToResponse(messages []entity.ChatMessage) []*dto.ChatMessageResponse {
	out := make([]*dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, m.MessageToResponse(&messages[i]))
	}
	return out
}

func (m *ChatMapper) MessageToResponse(msg *entity.ChatMessage) *dto.ChatMessageResponse {
	if msg == nil {
		return nil
	}

	res := &dto.ChatMessageResponse{
		Id:        msg.Id,
		Content:   msg.Content,
		Role:      msg.Role,
		Timestamp: msg.Timestamp,
	}
	if msg.Metadata != nil {
		res.Metadata = &dto.ChatMessageMetadataResponse{
			TokenCount: msg.Metadata.TokenCount,
			DurationMs: msg.Metadata.DurationMs,
			Sources:    msg.Metadata.Sources,
			Timestamp:  msg.Metadata.Timestamp,
		}
	}
	return res
}
