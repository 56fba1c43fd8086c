package memory

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"flowchat-be/internal/constant"
	"flowchat-be/internal/entity"
	"flowchat-be/internal/repository/contract"
	"flowchat-be/pkg/apperror"
	"flowchat-be/pkg/keylock"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// record wraps a published session snapshot. Snapshots are never modified after
// they are stored; a mutation builds a new one and swaps it in.
type record struct {
	session *entity.ChatSession
	seq     uint64
}

// SessionRepository keeps sessions in a go-cache without expiration. Mutations
// on one id are serialized by a key lock; the cache guards the map itself.
type SessionRepository struct {
	sessions *cache.Cache
	seq      atomic.Uint64

	locks *keylock.KeyedMutex
	now   func() time.Time
}

var _ contract.ChatSessionRepository = (*SessionRepository)(nil)

type Option func(*SessionRepository)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *SessionRepository) {
		r.now = now
	}
}

func NewSessionRepository(opts ...Option) *SessionRepository {
	r := &SessionRepository{
		sessions: cache.New(cache.NoExpiration, 0),
		locks:    keylock.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SessionRepository) Create(ctx context.Context, workflowId *string) (*entity.ChatSession, error) {
	now := r.now()
	session := &entity.ChatSession{
		Id:         uuid.New(),
		Title:      constant.DefaultSessionTitle,
		Messages:   []entity.ChatMessage{},
		WorkflowId: normalizeWorkflowId(workflowId),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	rec := &record{session: session, seq: r.seq.Add(1)}
	if err := r.sessions.Add(session.Id.String(), rec, cache.NoExpiration); err != nil {
		return nil, apperror.Internal("session id collision", err)
	}

	return session.Clone(), nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error) {
	rec, ok := r.load(id)
	if !ok {
		return nil, notFound(id)
	}
	return rec.session.Clone(), nil
}

func (r *SessionRepository) FindAll(ctx context.Context) ([]*entity.ChatSession, error) {
	items := r.sessions.Items()
	records := make([]*record, 0, len(items))
	for _, item := range items {
		records = append(records, item.Object.(*record))
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].session.UpdatedAt, records[j].session.UpdatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return records[i].seq > records[j].seq
	})

	out := make([]*entity.ChatSession, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.session.Clone())
	}
	return out, nil
}

func (r *SessionRepository) AppendMessage(ctx context.Context, id uuid.UUID, message entity.ChatMessage) (*entity.ChatSession, error) {
	msg := message.Clone()
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.now()
	}

	return r.mutate(id, func(s *entity.ChatSession) {
		s.Messages = append(s.Messages, msg)
		if len(s.Messages) == 1 && msg.Role == constant.ChatMessageRoleUser {
			s.Title = DeriveTitle(msg.Content)
		}
	})
}

func (r *SessionRepository) Update(ctx context.Context, id uuid.UUID, patch entity.SessionPatch) (*entity.ChatSession, error) {
	return r.mutate(id, func(s *entity.ChatSession) {
		if patch.Title != nil {
			s.Title = *patch.Title
		}
		if patch.WorkflowId != nil {
			s.WorkflowId = normalizeWorkflowId(patch.WorkflowId)
		}
	})
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	unlock := r.locks.Lock(id.String())
	defer unlock()

	if _, ok := r.load(id); !ok {
		return false, nil
	}
	r.sessions.Delete(id.String())
	return true, nil
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	r.sessions.Flush()
	return nil
}

func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	return r.sessions.ItemCount(), nil
}

// mutate applies fn to a private copy of the session under the per-session lock
// and publishes it with Replace, which fails once the key is gone. Clear does not
// take per-session locks, so this keeps a racing append from bringing a cleared
// session back.
func (r *SessionRepository) mutate(id uuid.UUID, fn func(s *entity.ChatSession)) (*entity.ChatSession, error) {
	unlock := r.locks.Lock(id.String())
	defer unlock()

	current, ok := r.load(id)
	if !ok {
		return nil, notFound(id)
	}

	next := current.session.Clone()
	fn(next)
	next.Id = current.session.Id
	next.CreatedAt = current.session.CreatedAt
	next.UpdatedAt = r.advance(current.session.UpdatedAt)

	if err := r.sessions.Replace(id.String(), &record{session: next, seq: current.seq}, cache.NoExpiration); err != nil {
		return nil, notFound(id)
	}

	return next.Clone(), nil
}

func (r *SessionRepository) load(id uuid.UUID) (*record, bool) {
	x, ok := r.sessions.Get(id.String())
	if !ok {
		return nil, false
	}
	return x.(*record), true
}

// advance returns a timestamp strictly after prev.
func (r *SessionRepository) advance(prev time.Time) time.Time {
	now := r.now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

// DeriveTitle builds a session title from the first user message.
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > constant.SessionTitleMaxLen {
		return string(runes[:constant.SessionTitleMaxLen]) + constant.SessionTitleSuffix
	}
	return content
}

func normalizeWorkflowId(workflowId *string) *string {
	if workflowId == nil || *workflowId == "" {
		return nil
	}
	w := *workflowId
	return &w
}

func notFound(id uuid.UUID) error {
	return apperror.NotFound(fmt.Sprintf("Session %s not found", id))
}
