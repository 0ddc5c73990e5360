package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
	"github.com/Kocoro-lab/Shannon/go/research/internal/metrics"
)

// Manager keeps open sessions in memory. Every session shares the manager's
// decision log, which is cleared when a session starts.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *decisionlog.Log
	logger   *zap.Logger
}

// NewManager creates a manager. A nil log uses decisionlog.Default().
func NewManager(log *decisionlog.Log, logger *zap.Logger) *Manager {
	if log == nil {
		log = decisionlog.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		log:      log,
		logger:   logger,
	}
}

// CreateSession starts a session with a generated ID.
func (m *Manager) CreateSession() *Session {
	s, _ := m.CreateSessionWithID(uuid.New().String())
	return s
}

// CreateSessionWithID starts a session with the given ID. The decision log's
// thoughts are cleared at this boundary.
func (m *Manager) CreateSessionWithID(id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %s already exists", id)
	}

	m.log.Clear()
	s := &Session{ID: id, CreatedAt: time.Now(), log: m.log}
	m.sessions[id] = s
	metrics.ActiveSessions.Inc()

	m.logger.Info("Session created", zap.String("session_id", id))
	return s, nil
}

// GetSession returns an open session.
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// EndSession closes a session and clears the decision log's thoughts.
func (m *Manager) EndSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	m.log.Clear()
	metrics.ActiveSessions.Dec()

	m.logger.Info("Session ended", zap.String("session_id", id))
	return nil
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
