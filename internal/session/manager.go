package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tableside/internal/config"
	"tableside/internal/models"
	"tableside/internal/monitoring"
)

// Manager keeps the live sessions of the process
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	tokens  *Tokens
	empty   models.CartState
	idleTTL time.Duration
	monitor *monitoring.Monitor
	log     *logrus.Logger
	now     func() time.Time
}

// NewManager creates a session manager. New sessions start with a copy of empty.
func NewManager(cfg config.SessionConfig, empty models.CartState, monitor *monitoring.Monitor, log *logrus.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		tokens:   NewTokens(cfg.TokenSecret, cfg.TokenTTL),
		empty:    empty,
		idleTTL:  cfg.IdleTTL,
		monitor:  monitor,
		log:      log,
		now:      time.Now,
	}
}

// Create starts a session and returns it with its signed token
func (m *Manager) Create() (*Session, string, error) {
	id := uuid.NewString()
	token, err := m.tokens.Issue(id)
	if err != nil {
		return nil, "", err
	}

	s := newSession(id, m.empty.Clone(), m.now())

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.monitor.SetActiveSessions(n)
	m.log.WithField("session_id", id).Info("session created")
	return s, token, nil
}

// Get returns a live session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

// Authorize verifies token and returns the session it names, which must be id
func (m *Manager) Authorize(id, token string) (*Session, error) {
	tokenID, err := m.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if tokenID != id {
		return nil, models.ErrInvalidToken
	}
	return m.Get(id)
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the idle ttl. Sessions in the
// middle of a turn are kept.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) && !busy(s.Phase()) {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	m.monitor.SetActiveSessions(n)
	if removed > 0 {
		m.log.WithFields(logrus.Fields{"removed": removed, "active": n}).Info("idle sessions swept")
	}
	return removed
}

// Run sweeps on every tick until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func busy(p Phase) bool {
	return p == PhaseSent || p == PhaseStreaming
}
