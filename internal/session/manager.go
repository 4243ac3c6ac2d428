package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultTTL is how long an idle session survives before a sweep removes
// it. Live game rounds move fast; a session untouched for this long is
// abandoned.
const DefaultTTL = 5 * time.Minute

// Manager tracks active sessions and expires idle ones.
type Manager struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	onRemove func(sessionID string)

	nowFunc func() time.Time // injectable for tests
}

// NewManager creates a session manager with the given idle TTL. A zero ttl
// uses DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		nowFunc:  time.Now,
	}
}

// SetOnRemove registers fn to be called with the id of every session the
// manager drops, whether by lazy expiry, sweep, or explicit Remove.
// Per-session state held outside the manager (background tasks, locks)
// hooks its cleanup here so every removal path releases it. fn runs
// outside the manager's lock and must be idempotent.
func (m *Manager) SetOnRemove(fn func(sessionID string)) {
	m.mu.Lock()
	m.onRemove = fn
	m.mu.Unlock()
}

// GetOrCreate returns the live session with the given ID, or creates a new
// one when the ID is empty or unknown or the session has expired. The
// returned session is touched.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()

	now := m.nowFunc()

	var expired string
	if id != "" {
		if s, ok := m.sessions[id]; ok {
			if s.IdleSince(now) < m.ttl {
				s.Touch(now)
				m.mu.Unlock()
				return s
			}
			delete(m.sessions, id)
			expired = id
		}
	}

	s := newSession(uuid.NewString(), now)
	m.sessions[s.ID] = s
	fn := m.onRemove
	m.mu.Unlock()

	if expired != "" {
		zap.L().Info("session expired", zap.String("session_id", expired))
		if fn != nil {
			fn(expired)
		}
	}
	zap.L().Info("session created", zap.String("session_id", s.ID))
	return s
}

// Get returns the live session with the given ID. Expired or unknown
// sessions return an error; the caller decides whether that is fatal.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()

	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, eris.Errorf("session %s: not found", id)
	}
	if s.IdleSince(m.nowFunc()) >= m.ttl {
		delete(m.sessions, id)
		fn := m.onRemove
		m.mu.Unlock()
		if fn != nil {
			fn(id)
		}
		return nil, eris.Errorf("session %s: expired", id)
	}
	m.mu.Unlock()
	return s, nil
}

// Remove deletes a session. Returns the removed session, or nil if it was
// not present.
func (m *Manager) Remove(id string) *Session {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	fn := m.onRemove
	m.mu.Unlock()

	if s != nil && fn != nil {
		fn(id)
	}
	return s
}

// Sweep removes all idle-expired sessions and returns how many were
// dropped. Run it periodically; expiry is also enforced lazily on access.
func (m *Manager) Sweep() int {
	m.mu.Lock()

	now := m.nowFunc()
	var removed []string
	for id, s := range m.sessions {
		if s.IdleSince(now) >= m.ttl {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	fn := m.onRemove
	m.mu.Unlock()

	if len(removed) > 0 {
		zap.L().Info("session sweep", zap.Int("removed", len(removed)))
	}
	if fn != nil {
		for _, id := range removed {
			fn(id)
		}
	}
	return len(removed)
}

// Len returns the number of tracked sessions, including any not yet swept.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
