// Package session keeps one wizard controller per checkout session. Sessions
// live in process memory only and expire when idle.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tapcard/storefront/internal/wizard"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Factory builds the controller for a new session.
type Factory func(id uuid.UUID) *wizard.Controller

type entry struct {
	ctrl     *wizard.Controller
	lastSeen time.Time
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry

	ttl     time.Duration
	factory Factory
	onClose func(id uuid.UUID)
	now     func() time.Time
}

// NewManager creates a Manager whose sessions expire after ttl without use.
func NewManager(factory Factory, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*entry),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// OnClose registers fn to run after a session is deleted or expires. Set it
// before the manager is shared.
func (m *Manager) OnClose(fn func(id uuid.UUID)) {
	m.onClose = fn
}

func (m *Manager) closed(id uuid.UUID, c *wizard.Controller) {
	c.Close()
	if m.onClose != nil {
		m.onClose(id)
	}
}

// Create starts a session with a fresh draft.
func (m *Manager) Create() (uuid.UUID, *wizard.Controller) {
	id := uuid.New()
	ctrl := m.factory(id)

	m.mu.Lock()
	m.sessions[id] = &entry{ctrl: ctrl, lastSeen: m.now()}
	m.mu.Unlock()
	return id, ctrl
}

// Get returns the session's controller and marks it as used.
func (m *Manager) Get(id uuid.UUID) (*wizard.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e.ctrl, nil
}

// Exists reports whether id is a live session without touching it.
func (m *Manager) Exists(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	m.closed(id, e.ctrl)
	return nil
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	expired := make(map[uuid.UUID]*wizard.Controller)
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			expired[id] = e.ctrl
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for id, c := range expired {
		m.closed(id, c)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes every session.
// Call it as a goroutine: go manager.Run(ctx, time.Minute)
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Printf("expired %d idle wizard sessions", n)
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[uuid.UUID]*entry)
	m.mu.Unlock()

	for id, e := range all {
		m.closed(id, e.ctrl)
	}
}
