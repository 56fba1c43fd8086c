package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flowchat-be/internal/constant"
	"flowchat-be/internal/dto"
	"flowchat-be/internal/pkg/logger"
	"flowchat-be/internal/repository/memory"
	"flowchat-be/pkg/apperror"
	"flowchat-be/pkg/events"
	"flowchat-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invokeCall struct {
	message    string
	sessionID  string
	workflowID string
	ctxErr     error
}

type fakeInvoker struct {
	mu    sync.Mutex
	calls []invokeCall
	reply func(message string) (*workflow.Result, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, message, sessionID, workflowID string) (*workflow.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invokeCall{message: message, sessionID: sessionID, workflowID: workflowID, ctxErr: ctx.Err()})
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(message)
	}
	return &workflow.Result{Text: "echo: " + message, DurationMs: 12, Timestamp: time.Now().UTC(), Strategy: "result"}, nil
}

func (f *fakeInvoker) lastCall() invokeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType())
	}
	return out
}

type fakeCatalog struct {
	flows any
	err   error
}

func (f *fakeCatalog) ListFlows(ctx context.Context) (any, error) {
	return f.flows, f.err
}

func (f *fakeCatalog) GetFlow(ctx context.Context, id string) (any, error) {
	return nil, f.err
}

func (f *fakeCatalog) Health(ctx context.Context, subPath string) (any, error) {
	return nil, f.err
}

func newChatFixture(invoker *fakeInvoker) (IChatService, *memory.SessionRepository, *fakePublisher) {
	return newChatFixtureWithCatalog(invoker, &fakeCatalog{})
}

func newChatFixtureWithCatalog(invoker *fakeInvoker, catalog *fakeCatalog) (IChatService, *memory.SessionRepository, *fakePublisher) {
	repo := memory.NewSessionRepository()
	pub := &fakePublisher{}
	return NewChatService(repo, invoker, catalog, pub, logger.NewNopLogger()), repo, pub
}

func strPtr(s string) *string { return &s }

func TestChatService_SendCreatesSession(t *testing.T) {
	invoker := &fakeInvoker{}
	svc, repo, pub := newChatFixture(invoker)
	ctx := context.Background()

	res, err := svc.Send(ctx, &dto.SendChatRequest{Message: "Hello world", WorkflowId: strPtr("flow-a")})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.SessionId)
	assert.Equal(t, "Hello world", res.UserMessage.Content)
	assert.Equal(t, constant.ChatMessageRoleUser, res.UserMessage.Role)
	assert.Equal(t, "echo: Hello world", res.AssistantMessage.Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, res.AssistantMessage.Role)
	require.NotNil(t, res.AssistantMessage.Metadata)
	assert.Equal(t, int64(12), res.AssistantMessage.Metadata.DurationMs)
	assert.NotNil(t, res.AssistantMessage.Metadata.Timestamp)

	assert.Equal(t, "Hello world", res.Session.Title)
	require.Len(t, res.Session.Messages, 2)
	require.NotNil(t, res.Session.WorkflowId)
	assert.Equal(t, "flow-a", *res.Session.WorkflowId)

	call := invoker.lastCall()
	assert.Equal(t, "Hello world", call.message)
	assert.Equal(t, res.SessionId.String(), call.sessionID)
	assert.Equal(t, "flow-a", call.workflowID)

	count, _ := repo.Count(ctx)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{events.ChatTurnCompleted}, pub.types())
}

func TestChatService_SendExistingSession(t *testing.T) {
	invoker := &fakeInvoker{}
	svc, repo, _ := newChatFixture(invoker)
	ctx := context.Background()

	s, _ := repo.Create(ctx, strPtr("bound-flow"))

	res, err := svc.Send(ctx, &dto.SendChatRequest{Message: "first", SessionId: s.Id.String()})
	require.NoError(t, err)
	assert.Equal(t, s.Id, res.SessionId)
	assert.Equal(t, "bound-flow", invoker.lastCall().workflowID)

	// a request workflow overrides the binding for this call only
	_, err = svc.Send(ctx, &dto.SendChatRequest{Message: "second", SessionId: s.Id.String(), WorkflowId: strPtr("override")})
	require.NoError(t, err)
	assert.Equal(t, "override", invoker.lastCall().workflowID)

	stored, _ := repo.FindByID(ctx, s.Id)
	require.Len(t, stored.Messages, 4)
	require.NotNil(t, stored.WorkflowId)
	assert.Equal(t, "bound-flow", *stored.WorkflowId)
	assert.Equal(t, "first", stored.Title)
}

func TestChatService_SendMissingSessionIsNotFound(t *testing.T) {
	invoker := &fakeInvoker{}
	svc, repo, _ := newChatFixture(invoker)
	ctx := context.Background()

	_, err := svc.Send(ctx, &dto.SendChatRequest{Message: "hi", SessionId: uuid.NewString()})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	count, _ := repo.Count(ctx)
	assert.Equal(t, 0, count, "no session may be created for an unknown id")
	assert.Empty(t, invoker.calls)
}

func TestChatService_SendMalformedSessionId(t *testing.T) {
	svc, _, _ := newChatFixture(&fakeInvoker{})

	_, err := svc.Send(context.Background(), &dto.SendChatRequest{Message: "hi", SessionId: "nope"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestChatService_SendFailureKeepsUserMessage(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   apperror.Kind
		wantStatus int
	}{
		{
			name:     "unavailable",
			err:      apperror.UpstreamUnavailable("workflow engine unreachable", errors.New("dial tcp: refused")),
			wantKind: apperror.KindUpstreamUnavailable,
		},
		{
			name:       "upstream status",
			err:        apperror.Upstream(500, "workflow engine returned status 500"),
			wantKind:   apperror.KindUpstream,
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := &fakeInvoker{reply: func(string) (*workflow.Result, error) { return nil, tt.err }}
			svc, repo, pub := newChatFixture(invoker)
			ctx := context.Background()

			s, _ := repo.Create(ctx, nil)
			_, err := svc.Send(ctx, &dto.SendChatRequest{Message: "will fail", SessionId: s.Id.String()})
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))
			assert.Equal(t, tt.wantStatus, apperror.UpstreamStatus(err))

			stored, _ := repo.FindByID(ctx, s.Id)
			require.Len(t, stored.Messages, 1)
			assert.Equal(t, constant.ChatMessageRoleUser, stored.Messages[0].Role)
			assert.Equal(t, "will fail", stored.Messages[0].Content)
			assert.Equal(t, []string{events.ChatTurnFailed}, pub.types())
		})
	}
}

func TestChatService_EngineCallSurvivesCallerCancel(t *testing.T) {
	invoker := &fakeInvoker{}
	svc, _, _ := newChatFixture(invoker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.Send(ctx, &dto.SendChatRequest{Message: "still runs"})
	require.NoError(t, err)
	assert.NoError(t, invoker.lastCall().ctxErr)
	assert.Len(t, res.Session.Messages, 2)
}

func TestChatService_PublishFailureDoesNotFailSend(t *testing.T) {
	repo := memory.NewSessionRepository()
	pub := &fakePublisher{err: errors.New("bus down")}
	svc := NewChatService(repo, &fakeInvoker{}, &fakeCatalog{}, pub, logger.NewNopLogger())

	_, err := svc.Send(context.Background(), &dto.SendChatRequest{Message: "hi"})
	assert.NoError(t, err)
}

func TestChatService_ConcurrentSendsSameSession(t *testing.T) {
	invoker := &fakeInvoker{reply: func(message string) (*workflow.Result, error) {
		time.Sleep(time.Millisecond)
		return &workflow.Result{Text: "re: " + message, Timestamp: time.Now().UTC()}, nil
	}}
	svc, repo, _ := newChatFixture(invoker)
	ctx := context.Background()

	s, _ := repo.Create(ctx, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(ctx, &dto.SendChatRequest{Message: uuid.NewString(), SessionId: s.Id.String()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.FindByID(ctx, s.Id)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 100)

	users := 0
	for i := 0; i < len(stored.Messages); i += 2 {
		user, reply := stored.Messages[i], stored.Messages[i+1]
		assert.Equal(t, constant.ChatMessageRoleUser, user.Role)
		assert.Equal(t, constant.ChatMessageRoleAssistant, reply.Role)
		assert.Equal(t, "re: "+user.Content, reply.Content, "each reply follows its own question")
		users++
	}
	assert.Equal(t, 50, users)
}

func TestChatService_History(t *testing.T) {
	svc, _, _ := newChatFixture(&fakeInvoker{})
	ctx := context.Background()

	res, err := svc.Send(ctx, &dto.SendChatRequest{Message: "hello"})
	require.NoError(t, err)

	history, err := svc.History(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Len(t, history.Messages, 2)
	assert.Equal(t, res.SessionId, history.Session.Id)

	_, err = svc.History(ctx, uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestEffectiveWorkflowId(t *testing.T) {
	assert.Equal(t, "o", effectiveWorkflowId(strPtr("o"), strPtr("b")))
	assert.Equal(t, "b", effectiveWorkflowId(strPtr(""), strPtr("b")))
	assert.Equal(t, "b", effectiveWorkflowId(nil, strPtr("b")))
	assert.Equal(t, "", effectiveWorkflowId(nil, nil))
}

func catalogWith(flows ...map[string]any) *fakeCatalog {
	list := make([]any, 0, len(flows))
	for _, f := range flows {
		list = append(list, f)
	}
	return &fakeCatalog{flows: list}
}

func TestChatService_SendWithDirectiveRoutesTurn(t *testing.T) {
	catalog := catalogWith(
		map[string]any{"id": "f-basic", "name": "Basic Prompting"},
		map[string]any{"id": "f-rag", "name": "RAG"},
	)

	tests := []struct {
		name         string
		message      string
		override     *string
		wantWorkflow string
		wantText     string
	}{
		{name: "flow id", message: "@flow:abc-123 Hello there", wantWorkflow: "abc-123", wantText: "Hello there"},
		{name: "flow id beats body override", message: "@flow:abc Hi", override: strPtr("body-flow"), wantWorkflow: "abc", wantText: "Hi"},
		{name: "workflow name", message: "@workflow:basic-prompting Summarize", wantWorkflow: "f-basic", wantText: "Summarize"},
		{name: "unknown workflow name uses default", message: "@workflow:nope Hi", wantWorkflow: "", wantText: "Hi"},
		{name: "plain message", message: "just text", override: strPtr("body-flow"), wantWorkflow: "body-flow", wantText: "just text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := &fakeInvoker{}
			svc, repo, _ := newChatFixtureWithCatalog(invoker, catalog)
			ctx := context.Background()

			res, err := svc.Send(ctx, &dto.SendChatRequest{Message: tt.message, WorkflowId: tt.override})
			require.NoError(t, err)

			call := invoker.lastCall()
			assert.Equal(t, tt.wantWorkflow, call.workflowID)
			assert.Equal(t, tt.wantText, call.message)
			assert.Equal(t, tt.wantText, res.UserMessage.Content)

			stored, _ := repo.FindByID(ctx, res.SessionId)
			assert.Equal(t, tt.wantText, stored.Title)
		})
	}
}

func TestChatService_SendDirectiveWithoutText(t *testing.T) {
	invoker := &fakeInvoker{}
	svc, repo, _ := newChatFixture(invoker)
	ctx := context.Background()

	_, err := svc.Send(ctx, &dto.SendChatRequest{Message: "@flow:abc   "})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	count, _ := repo.Count(ctx)
	assert.Zero(t, count)
	assert.Empty(t, invoker.calls)
}

func TestChatService_ListWorkflowsCommand(t *testing.T) {
	invoker := &fakeInvoker{}
	svc, _, pub := newChatFixtureWithCatalog(invoker, catalogWith(map[string]any{"id": "f-rag", "name": "RAG", "description": "retrieval"}))

	res, err := svc.Send(context.Background(), &dto.SendChatRequest{Message: "@workflows"})
	require.NoError(t, err)

	assert.Empty(t, invoker.calls, "commands never reach the engine")
	assert.Empty(t, pub.types())
	assert.Equal(t, "@workflows", res.UserMessage.Content)
	assert.Contains(t, res.AssistantMessage.Content, "RAG (key: `rag`, id: `f-rag`)")
	assert.Equal(t, constant.ChatMessageRoleAssistant, res.AssistantMessage.Role)
	assert.Len(t, res.Session.Messages, 2)
}

func TestChatService_SetWorkflowCommandBindsSession(t *testing.T) {
	invoker := &fakeInvoker{}
	svc, repo, _ := newChatFixtureWithCatalog(invoker, catalogWith(map[string]any{"id": "f-rag", "name": "RAG"}))
	ctx := context.Background()

	s, _ := repo.Create(ctx, strPtr("old-flow"))

	res, err := svc.Send(ctx, &dto.SendChatRequest{Message: "@set-workflow:RAG", SessionId: s.Id.String()})
	require.NoError(t, err)
	assert.Contains(t, res.AssistantMessage.Content, "RAG")
	require.NotNil(t, res.Session.WorkflowId)
	assert.Equal(t, "f-rag", *res.Session.WorkflowId)

	_, err = svc.Send(ctx, &dto.SendChatRequest{Message: "next question", SessionId: s.Id.String()})
	require.NoError(t, err)
	assert.Equal(t, "f-rag", invoker.lastCall().workflowID)

	stored, _ := repo.FindByID(ctx, s.Id)
	assert.Len(t, stored.Messages, 4)
}

func TestChatService_SetWorkflowCommandUnknownName(t *testing.T) {
	svc, repo, _ := newChatFixtureWithCatalog(&fakeInvoker{}, catalogWith(map[string]any{"id": "f-rag", "name": "RAG"}))
	ctx := context.Background()

	s, _ := repo.Create(ctx, strPtr("old-flow"))

	res, err := svc.Send(ctx, &dto.SendChatRequest{Message: "@set-workflow:missing", SessionId: s.Id.String()})
	require.NoError(t, err)
	assert.Equal(t, "Workflow 'missing' not found. Available: rag", res.AssistantMessage.Content)
	require.NotNil(t, res.Session.WorkflowId)
	assert.Equal(t, "old-flow", *res.Session.WorkflowId)
}

func TestChatService_CommandCatalogFailure(t *testing.T) {
	svc, repo, _ := newChatFixtureWithCatalog(&fakeInvoker{}, &fakeCatalog{err: apperror.UpstreamUnavailable("workflow engine unreachable", nil)})
	ctx := context.Background()

	s, _ := repo.Create(ctx, nil)

	_, err := svc.Send(ctx, &dto.SendChatRequest{Message: "@workflows", SessionId: s.Id.String()})
	assert.Equal(t, apperror.KindUpstreamUnavailable, apperror.KindOf(err))

	stored, _ := repo.FindByID(ctx, s.Id)
	assert.Empty(t, stored.Messages)
}
