package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/lumi/backend/internal/model/chat"
	"github.com/zhouzirui/lumi/backend/internal/model/persona"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrTurnInProgress  = errors.New("a turn is already in progress for this session")
)

// TurnHandler processes one utterance against a conversation.
type TurnHandler interface {
	HandleTurn(ctx context.Context, conv *chat.Conversation, raw string) (user, assistant chat.Message, ok bool)
}

// Turn is the pair of messages produced by one submission.
type Turn struct {
	User      chat.Message `json:"user"`
	Assistant chat.Message `json:"assistant"`
}

type session struct {
	meta chat.Session
	// conv is only touched by the goroutine holding busy.
	conv       *chat.Conversation
	busy       atomic.Bool
	lastActive atomic.Int64

	mu       sync.RWMutex
	snapshot []chat.Message
}

func (s *session) publish() {
	msgs := s.conv.Messages()
	s.mu.Lock()
	s.snapshot = msgs
	s.mu.Unlock()
}

// Service owns the live conversations and serializes turns per session.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session

	handler  TurnHandler
	personas persona.Store
	clock    func() time.Time
	logger   *zap.Logger
}

// NewService bootstraps the in-memory session registry.
func NewService(handler TurnHandler, personas persona.Store, logger *zap.Logger) *Service {
	if personas == nil {
		personas = persona.NewMemoryStore(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: make(map[string]*session),
		handler:  handler,
		personas: personas,
		clock:    time.Now,
		logger:   logger,
	}
}

// CreateSession provisions an anonymous session bound to a persona and seeds
// the persona's opening line. An empty personaID selects the default persona.
func (s *Service) CreateSession(_ context.Context, personaID string) (chat.Session, error) {
	var p persona.Persona
	if personaID == "" {
		p = s.personas.Default()
	} else {
		found, ok := s.personas.FindByID(personaID)
		if !ok {
			return chat.Session{}, ErrPersonaNotFound
		}
		p = found
	}

	now := s.clock().UTC()
	meta := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: p.ID,
		CreatedAt: now,
	}

	sess := &session{meta: meta, conv: chat.NewConversation(meta.ID, p.ID)}
	if p.OpeningLine != "" {
		sess.conv.Append(chat.Message{
			ID:        uuid.NewString(),
			SessionID: meta.ID,
			Role:      chat.RoleAssistant,
			Content:   p.OpeningLine,
			Source:    chat.SourceDirect,
			Timestamp: now,
		})
	}
	sess.lastActive.Store(now.UnixNano())
	sess.publish()

	s.mu.Lock()
	s.sessions[meta.ID] = sess
	s.mu.Unlock()

	s.logger.Info("[chat] session created", zap.String("session", meta.ID), zap.String("persona", p.ID))
	return meta, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	sess, ok := s.lookup(sessionID)
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return sess.meta, nil
}

// LoadTranscript returns the messages of the last completed turn. It never
// blocks on a turn in progress.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	sess, ok := s.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return append([]chat.Message(nil), sess.snapshot...), nil
}

// Submit runs one turn. A concurrent submission on the same session fails
// with ErrTurnInProgress. Whitespace-only input returns a nil Turn.
func (s *Service) Submit(ctx context.Context, sessionID, raw string) (*Turn, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.busy.Store(false)

	user, assistant, handled := s.handler.HandleTurn(ctx, sess.conv, raw)
	sess.lastActive.Store(s.clock().UnixNano())
	if !handled {
		return nil, nil
	}

	sess.publish()
	return &Turn{User: user, Assistant: assistant}, nil
}

// CloseSession tears a session down.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.logger.Info("[chat] session closed", zap.String("session", sessionID))
	return nil
}

// CountByPersona reports live sessions per persona.
func (s *Service) CountByPersona() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, sess := range s.sessions {
		counts[sess.meta.PersonaID]++
	}
	return counts
}

// Sweep removes idle sessions older than ttl, skipping any with a turn in
// progress, and returns how many were removed.
func (s *Service) Sweep(ttl time.Duration) int {
	cutoff := s.clock().Add(-ttl).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.busy.Load() || sess.lastActive.Load() > cutoff {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, ttl, interval time.Duration) error {
	if ttl <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(ttl); n > 0 {
				s.logger.Info("[chat] expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Service) lookup(sessionID string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// acquire claims the session for one turn. The claim happens under the
// registry read lock so Sweep, which holds the write lock, either removes the
// session first or sees it busy.
func (s *Service) acquire(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !sess.busy.CompareAndSwap(false, true) {
		return nil, ErrTurnInProgress
	}
	sess.lastActive.Store(s.clock().UnixNano())
	return sess, nil
}
