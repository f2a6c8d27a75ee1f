package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/veracity-ai/veracity/internal/domain"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Session owns one problem-solving session's mutable core: its provenance
// ledger and cognitive state. The registry and state themselves are
// single-owner values; the session's mutex is what lets the HTTP layer
// drive them without two requests ever interleaving a mutation.
type Session struct {
	ID           uuid.UUID
	Registry     *Registry
	State        *domain.CognitiveState
	CreatedAt    time.Time
	LastActiveAt time.Time

	mu sync.Mutex
}

// With runs fn while holding the session lock and refreshes the activity
// timestamp.
func (s *Session) With(fn func(r *Registry, state *domain.CognitiveState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
	fn(s.Registry, s.State)
}

// SessionService creates, resolves, and closes sessions. One registry and
// one cognitive state per session; no shared mutable globals.
type SessionService struct {
	ledgerStore domain.LedgerStore
	logger      *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionService builds a session service. ledgerStore may be nil; then
// closed sessions are discarded without archiving.
func NewSessionService(ledgerStore domain.LedgerStore, logger *zap.Logger) *SessionService {
	return &SessionService{
		ledgerStore: ledgerStore,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*Session),
	}
}

// Create starts a fresh session for a goal.
func (s *SessionService) Create(goal string) *Session {
	now := time.Now()
	session := &Session{
		ID:           uuid.New(),
		Registry:     NewRegistry(),
		State:        domain.NewCognitiveState(goal),
		CreatedAt:    now,
		LastActiveAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("session created",
		zap.String("session_id", session.ID.String()),
		zap.String("goal", goal))

	return session
}

// Get resolves a session by ID.
func (s *SessionService) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close ends a session: the ledger is archived when an archive store is
// configured, then the session is dropped and its ledger cleared.
func (s *SessionService) Close(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.With(func(r *Registry, state *domain.CognitiveState) {
		if s.ledgerStore != nil {
			snap := r.Export()
			if err := s.ledgerStore.Archive(ctx, session.ID, domain.LedgerRecord{
				Observations: snap.Observations,
				Claims:       snap.Claims,
				Goal:         state.GoalStatement,
				CreatedAt:    session.CreatedAt,
			}); err != nil {
				s.logger.Warn("failed to archive session ledger",
					zap.String("session_id", session.ID.String()),
					zap.Error(err))
			}
		}
		r.Clear()
	})

	s.logger.Info("session closed", zap.String("session_id", id.String()))
	return nil
}

// Count returns the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IdleSince returns the IDs of sessions whose last activity predates the
// cutoff.
func (s *SessionService) IdleSince(cutoff time.Time) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idle []uuid.UUID
	for id, session := range s.sessions {
		session.mu.Lock()
		last := session.LastActiveAt
		session.mu.Unlock()
		if last.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}
