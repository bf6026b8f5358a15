package scheduler

import (
	"context"
	"time"

	"github.com/naeap/journal/internal/logger"
)

const (
	// DefaultIdleTimeout is how long an admin console may sit unused before
	// it is dropped.
	DefaultIdleTimeout = 2 * time.Hour
)

// Sweepable is a set of sessions that can drop its idle members.
type Sweepable interface {
	Sweep(now time.Time, maxIdle time.Duration) int
	Len() int
}

// SessionSweeper periodically drops idle admin consoles.
type SessionSweeper struct {
	sessions Sweepable
	logger   logger.Logger
	interval time.Duration
	idle     time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewSessionSweeper creates a sweeper. A zero idle timeout uses
// DefaultIdleTimeout.
func NewSessionSweeper(sessions Sweepable, log logger.Logger, interval, idle time.Duration) *SessionSweeper {
	if idle == 0 {
		idle = DefaultIdleTimeout
	}

	return &SessionSweeper{
		sessions: sessions,
		logger:   log,
		interval: interval,
		idle:     idle,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep every interval until Stop or ctx is done.
func (s *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweeper.
func (s *SessionSweeper) Stop() {
	close(s.stopCh)
}

// Sweep drops consoles idle for longer than the timeout.
func (s *SessionSweeper) Sweep() int {
	removed := s.sessions.Sweep(s.now(), s.idle)
	if removed > 0 {
		s.logger.Info("dropped idle admin consoles",
			logger.Int("removed", removed),
			logger.Int("remaining", s.sessions.Len()),
			logger.Duration("idle_timeout", s.idle))
	} else {
		s.logger.Debug("no idle admin consoles to drop")
	}
	return removed
}
