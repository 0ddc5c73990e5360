package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist
	ErrSessionNotFound = errors.New("session not found")
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message represents a message in the session history
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role, content string) Message {
	return Message{ID: uuid.New().String(), Role: role, Content: content, Timestamp: time.Now()}
}

// Session is the handle passed through one research conversation. It carries
// the decision log and the message history.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	log *decisionlog.Log

	mu      sync.RWMutex
	history []Message
}

// Log returns the session's decision log.
func (s *Session) Log() *decisionlog.Log { return s.log }

// AddMessage appends a message to the history.
func (s *Session) AddMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
}

// History returns a copy of the message history.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// SetHistory replaces the history, e.g. after budget truncation.
func (s *Session) SetHistory(history []Message) {
	cp := make([]Message, len(history))
	copy(cp, history)
	s.mu.Lock()
	s.history = cp
	s.mu.Unlock()
}
