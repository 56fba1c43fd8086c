package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flowchat-be/internal/constant"
	"flowchat-be/internal/dto"
	"flowchat-be/internal/entity"
	"flowchat-be/internal/mapper"
	"flowchat-be/internal/pkg/logger"
	"flowchat-be/internal/repository/contract"
	"flowchat-be/pkg/apperror"
	"flowchat-be/pkg/events"
	"flowchat-be/pkg/keylock"
	"flowchat-be/pkg/workflow"

	"github.com/google/uuid"
)

type IChatService interface {
	Send(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	History(ctx context.Context, sessionId uuid.UUID) (*dto.ChatHistoryResponse, error)
}

type chatService struct {
	sessionRepo contract.ChatSessionRepository
	resolver    *sessionResolver
	invoker     workflow.Invoker
	catalog     workflow.Catalog
	publisher   IPublisherService
	mapper      *mapper.ChatMapper
	logger      logger.ILogger

	// turns holds one lock per session for the whole send cycle.
	turns *keylock.KeyedMutex
	now   func() time.Time
}

func NewChatService(
	sessionRepo contract.ChatSessionRepository,
	invoker workflow.Invoker,
	catalog workflow.Catalog,
	publisher IPublisherService,
	logger logger.ILogger,
) IChatService {
	return &chatService{
		sessionRepo: sessionRepo,
		resolver:    newSessionResolver(sessionRepo),
		invoker:     invoker,
		catalog:     catalog,
		publisher:   publisher,
		mapper:      mapper.NewChatMapper(),
		logger:      logger,
		turns:       keylock.New(),
		now:         time.Now,
	}
}

func (cs *chatService) Send(ctx context.Context, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	directive := ParseWorkflowDirective(request.Message)
	if !directive.IsCommand() && strings.TrimSpace(directive.Message) == "" {
		return nil, apperror.Validation("message is empty after the workflow directive")
	}

	session, err := cs.resolver.resolveOrCreate(ctx, request.SessionId, request.WorkflowId)
	if err != nil {
		return nil, err
	}

	unlock := cs.turns.Lock(session.Id.String())
	defer unlock()

	// The rest of the turn must finish even if the caller goes away.
	turnCtx := context.WithoutCancel(ctx)

	if directive.IsCommand() {
		return cs.runCommand(turnCtx, session, request.Message, directive)
	}

	workflowId := effectiveWorkflowId(request.WorkflowId, session.WorkflowId)
	switch directive.Type {
	case DirectiveFlowID:
		workflowId = directive.Target
	case DirectiveWorkflowName:
		workflowId = cs.lookupFlowID(turnCtx, directive.Target)
	}

	userMessage := entity.ChatMessage{
		Id:        uuid.New(),
		Content:   directive.Message,
		Role:      constant.ChatMessageRoleUser,
		Timestamp: cs.now(),
	}
	session, err = cs.sessionRepo.AppendMessage(turnCtx, session.Id, userMessage)
	if err != nil {
		return nil, err
	}

	result, err := cs.invoker.Invoke(turnCtx, directive.Message, session.Id.String(), workflowId)
	if err != nil {
		cs.logger.Error("CHAT", "Workflow invocation failed", map[string]interface{}{
			"session_id":  session.Id.String(),
			"workflow_id": workflowId,
			"kind":        string(apperror.KindOf(err)),
			"status":      apperror.UpstreamStatus(err),
			"error":       err.Error(),
		})
		cs.publish(turnCtx, events.ChatTurnFailed, map[string]interface{}{
			"session_id":      session.Id.String(),
			"user_message_id": userMessage.Id.String(),
			"error_kind":      string(apperror.KindOf(err)),
		})
		return nil, apperror.Wrap(err, "chat send failed")
	}

	replyAt := result.Timestamp
	if replyAt.IsZero() {
		replyAt = cs.now().UTC()
	}
	assistantMessage := entity.ChatMessage{
		Id:        uuid.New(),
		Content:   result.Text,
		Role:      constant.ChatMessageRoleAssistant,
		Timestamp: cs.now(),
		Metadata: &entity.ChatMessageMetadata{
			DurationMs: result.DurationMs,
			Timestamp:  &replyAt,
		},
	}
	session, err = cs.sessionRepo.AppendMessage(turnCtx, session.Id, assistantMessage)
	if err != nil {
		// Deleted while the engine was answering.
		return nil, err
	}

	cs.logger.Info("CHAT", "Chat turn completed", map[string]interface{}{
		"session_id":  session.Id.String(),
		"workflow_id": workflowId,
		"duration_ms": result.DurationMs,
		"strategy":    result.Strategy,
	})
	cs.publish(turnCtx, events.ChatTurnCompleted, map[string]interface{}{
		"session_id":           session.Id.String(),
		"user_message_id":      userMessage.Id.String(),
		"assistant_message_id": assistantMessage.Id.String(),
		"duration_ms":          result.DurationMs,
	})

	return &dto.SendChatResponse{
		SessionId:        session.Id,
		UserMessage:      cs.mapper.MessageToResponse(&userMessage),
		AssistantMessage: cs.mapper.MessageToResponse(&assistantMessage),
		Session:          cs.mapper.SessionToResponse(session),
	}, nil
}

// runCommand answers @workflows and @set-workflow locally. The command and its
// answer are stored like any other turn; nothing is sent to the engine.
func (cs *chatService) runCommand(ctx context.Context, session *entity.ChatSession, raw string, directive WorkflowDirective) (*dto.SendChatResponse, error) {
	doc, err := cs.catalog.ListFlows(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, "workflow command failed")
	}
	flows := workflow.IndexFlows(doc)

	userMessage := entity.ChatMessage{
		Id:        uuid.New(),
		Content:   raw,
		Role:      constant.ChatMessageRoleUser,
		Timestamp: cs.now(),
	}
	session, err = cs.sessionRepo.AppendMessage(ctx, session.Id, userMessage)
	if err != nil {
		return nil, err
	}

	var reply string
	switch directive.Type {
	case DirectiveListFlows:
		reply = formatFlowList(flows)
	case DirectiveSetWorkflow:
		flow, ok := workflow.FindFlow(flows, directive.Target)
		if !ok {
			reply = fmt.Sprintf("Workflow '%s' not found. Available: %s", directive.Target, flowKeys(flows))
			break
		}
		flowId := flow.ID
		if _, err := cs.sessionRepo.Update(ctx, session.Id, entity.SessionPatch{WorkflowId: &flowId}); err != nil {
			return nil, err
		}
		reply = fmt.Sprintf("Default workflow for this session set to %s.", flow.Name)
	}

	repliedAt := cs.now().UTC()
	assistantMessage := entity.ChatMessage{
		Id:        uuid.New(),
		Content:   reply,
		Role:      constant.ChatMessageRoleAssistant,
		Timestamp: cs.now(),
		Metadata:  &entity.ChatMessageMetadata{Timestamp: &repliedAt},
	}
	session, err = cs.sessionRepo.AppendMessage(ctx, session.Id, assistantMessage)
	if err != nil {
		return nil, err
	}

	cs.logger.Info("CHAT", "Workflow command handled", map[string]interface{}{
		"session_id": session.Id.String(),
		"command":    string(directive.Type),
		"target":     directive.Target,
	})

	return &dto.SendChatResponse{
		SessionId:        session.Id,
		UserMessage:      cs.mapper.MessageToResponse(&userMessage),
		AssistantMessage: cs.mapper.MessageToResponse(&assistantMessage),
		Session:          cs.mapper.SessionToResponse(session),
	}, nil
}

// lookupFlowID resolves a workflow name through the catalog. An unknown name or
// an unreachable catalog falls back to the default flow.
func (cs *chatService) lookupFlowID(ctx context.Context, name string) string {
	doc, err := cs.catalog.ListFlows(ctx)
	if err != nil {
		cs.logger.Warn("CHAT", "Workflow catalog unavailable, using default flow", map[string]interface{}{
			"workflow": name,
			"error":    err.Error(),
		})
		return ""
	}
	flow, ok := workflow.FindFlow(workflow.IndexFlows(doc), name)
	if !ok {
		cs.logger.Warn("CHAT", "Workflow name not found, using default flow", map[string]interface{}{"workflow": name})
		return ""
	}
	return flow.ID
}

func (cs *chatService) History(ctx context.Context, sessionId uuid.UUID) (*dto.ChatHistoryResponse, error) {
	session, err := cs.resolver.resolve(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	res := cs.mapper.SessionToResponse(session)
	return &dto.ChatHistoryResponse{
		Messages: res.Messages,
		Session:  res,
	}, nil
}

func (cs *chatService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if cs.publisher == nil {
		return
	}
	err := cs.publisher.Publish(ctx, events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: cs.now(),
	})
	if err != nil {
		cs.logger.Warn("CHAT", "Failed to publish chat event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

// effectiveWorkflowId prefers the per-request override over the session binding.
// An empty result lets the client fall back to its default flow.
func effectiveWorkflowId(override, bound *string) string {
	if override != nil && *override != "" {
		return *override
	}
	if bound != nil {
		return *bound
	}
	return ""
}
