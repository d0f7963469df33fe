package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultExpirerInterval = 5 * time.Minute
	DefaultSessionIdleTTL  = 30 * time.Minute
)

// ExpirerService periodically evicts idle sessions from memory. Their
// responses stay in the session store, so an evicted session is restored
// transparently on its next request.
type ExpirerService struct {
	sessions *SessionService
	ttl      time.Duration
	logger   *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewExpirerService(sessions *SessionService, ttl time.Duration, logger *zap.Logger) *ExpirerService {
	if ttl <= 0 {
		ttl = DefaultSessionIdleTTL
	}
	return &ExpirerService{
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		interval: defaultExpirerInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *ExpirerService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the expirer on a periodic schedule in a background goroutine.
func (s *ExpirerService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("session expirer started",
			zap.Duration("interval", s.interval),
			zap.Duration("idle_ttl", s.ttl))

		for {
			select {
			case <-ticker.C:
				s.run()
			case <-s.stopCh:
				s.logger.Info("session expirer stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the expirer.
func (s *ExpirerService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *ExpirerService) run() int {
	n := s.sessions.EvictIdle(s.sessions.now().Add(-s.ttl))
	if n > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("count", n))
	}
	return n
}
