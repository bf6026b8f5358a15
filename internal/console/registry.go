package console

import (
	"sync"
	"time"

	"github.com/naeap/journal/internal/metrics"
)

// Registry keeps one console per admin session.
type Registry struct {
	mu       sync.Mutex
	consoles map[string]*Console // session ID -> console
	factory  func() *Console
	metrics  *metrics.Metrics
}

// NewRegistry creates an empty registry. factory builds the console of a
// session seen for the first time.
func NewRegistry(factory func() *Console, m *metrics.Metrics) *Registry {
	return &Registry{
		consoles: make(map[string]*Console),
		factory:  factory,
		metrics:  m,
	}
}

// Get returns the console of a session, creating it if needed.
func (r *Registry) Get(sessionID string) *Console {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.consoles[sessionID]
	if !ok {
		c = r.factory()
		r.consoles[sessionID] = c
		r.metrics.SetConsoleSessions(len(r.consoles))
	}
	return c
}

// Drop forgets a session, typically on logout.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.consoles, sessionID)
	r.metrics.SetConsoleSessions(len(r.consoles))
}

// Sweep drops consoles idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time, maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.consoles {
		if c.IdleFor(now) > maxIdle {
			delete(r.consoles, id)
			removed++
		}
	}
	r.metrics.SetConsoleSessions(len(r.consoles))
	return removed
}

// Len returns the number of live consoles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consoles)
}
