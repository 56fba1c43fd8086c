package service

import (
	"context"
	"strings"

	"flowchat-be/internal/dto"
	"flowchat-be/internal/entity"
	"flowchat-be/internal/mapper"
	"flowchat-be/internal/pkg/logger"
	"flowchat-be/internal/repository/contract"
	"flowchat-be/pkg/apperror"

	"github.com/google/uuid"
)

type ISessionService interface {
	Create(ctx context.Context, request *dto.CreateSessionRequest) (*dto.ChatSessionResponse, error)
	List(ctx context.Context) ([]*dto.ChatSessionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ChatSessionResponse, error)
	Update(ctx context.Context, id uuid.UUID, request *dto.UpdateSessionRequest) (*dto.ChatSessionResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

type sessionService struct {
	sessionRepo contract.ChatSessionRepository
	resolver    *sessionResolver
	mapper      *mapper.ChatMapper
	logger      logger.ILogger
}

func NewSessionService(sessionRepo contract.ChatSessionRepository, logger logger.ILogger) ISessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		resolver:    newSessionResolver(sessionRepo),
		mapper:      mapper.NewChatMapper(),
		logger:      logger,
	}
}

func (s *sessionService) Create(ctx context.Context, request *dto.CreateSessionRequest) (*dto.ChatSessionResponse, error) {
	var workflowId *string
	if request != nil {
		workflowId = request.WorkflowId
	}

	session, err := s.sessionRepo.Create(ctx, workflowId)
	if err != nil {
		return nil, err
	}

	s.logger.Info("SESSION", "Session created", map[string]interface{}{"session_id": session.Id.String()})
	return s.mapper.SessionToResponse(session), nil
}

func (s *sessionService) List(ctx context.Context) ([]*dto.ChatSessionResponse, error) {
	sessions, err := s.sessionRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.mapper.SessionsToResponse(sessions), nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*dto.ChatSessionResponse, error) {
	session, err := s.resolver.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.mapper.SessionToResponse(session), nil
}

func (s *sessionService) Update(ctx context.Context, id uuid.UUID, request *dto.UpdateSessionRequest) (*dto.ChatSessionResponse, error) {
	if request.Title != nil && strings.TrimSpace(*request.Title) == "" {
		return nil, apperror.Validation("title must not be blank")
	}

	session, err := s.sessionRepo.Update(ctx, id, entity.SessionPatch{
		Title:      request.Title,
		WorkflowId: request.WorkflowId,
	})
	if err != nil {
		return nil, err
	}
	return s.mapper.SessionToResponse(session), nil
}

func (s *sessionService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.sessionRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperror.NotFound("Session " + id.String() + " not found")
	}

	s.logger.Info("SESSION", "Session deleted", map[string]interface{}{"session_id": id.String()})
	return nil
}

func (s *sessionService) Clear(ctx context.Context) error {
	count, _ := s.sessionRepo.Count(ctx)
	if err := s.sessionRepo.Clear(ctx); err != nil {
		return err
	}

	s.logger.Info("SESSION", "All sessions cleared", map[string]interface{}{"count": count})
	return nil
}

func (s *sessionService) Count(ctx context.Context) (int, error) {
	return s.sessionRepo.Count(ctx)
}
