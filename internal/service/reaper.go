package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReaperInterval = 10 * time.Minute
	defaultSessionIdleTTL = 1 * time.Hour
)

// ReaperService closes sessions that have been idle past their TTL,
// archiving their ledgers on the way out.
type ReaperService struct {
	sessions *SessionService
	logger   *zap.Logger

	interval time.Duration
	idleTTL  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReaperService(sessions *SessionService, logger *zap.Logger) *ReaperService {
	return &ReaperService{
		sessions: sessions,
		logger:   logger,
		interval: defaultReaperInterval,
		idleTTL:  defaultSessionIdleTTL,
		stopCh:   make(chan struct{}),
	}
}

func (s *ReaperService) SetInterval(d time.Duration) { s.interval = d }

func (s *ReaperService) SetIdleTTL(d time.Duration) { s.idleTTL = d }

// Start runs the reaper on a periodic schedule in a background goroutine.
func (s *ReaperService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("session reaper started",
			zap.Duration("interval", s.interval),
			zap.Duration("idle_ttl", s.idleTTL))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("session reaper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the reaper.
func (s *ReaperService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *ReaperService) run(ctx context.Context) {
	cutoff := time.Now().Add(-s.idleTTL)
	idle := s.sessions.IdleSince(cutoff)

	for _, id := range idle {
		if err := s.sessions.Close(ctx, id); err != nil {
			s.logger.Warn("failed to close idle session",
				zap.String("session_id", id.String()),
				zap.Error(err))
			continue
		}
		s.logger.Info("closed idle session", zap.String("session_id", id.String()))
	}
}
