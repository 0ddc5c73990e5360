package research

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
	"github.com/Kocoro-lab/Shannon/go/research/internal/session"
	"github.com/Kocoro-lab/Shannon/go/research/internal/summarize"
)

func newSession(t *testing.T, roles ...string) *session.Session {
	t.Helper()
	s := session.NewManager(decisionlog.New(), nil).CreateSession()
	for _, r := range roles {
		s.AddMessage(session.NewMessage(r, r+" message"))
	}
	return s
}

func TestRecoverTruncatesOnBudgetExceeded(t *testing.T) {
	u, a := session.RoleUser, session.RoleAssistant
	s := newSession(t, u, a, u, a, u)

	budgetErr := &summarize.UpstreamError{Provider: "gigachat", StatusCode: 413, Body: "maximum context length exceeded"}
	r := NewRecovery(nil, zaptest.NewLogger(t))

	require.True(t, r.Recover(s, budgetErr, "gigachat:GigaChat-2-Max"))
	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, []string{u, a, u}, []string{h[0].Role, h[1].Role, h[2].Role})
}

func TestRecoverIgnoresOtherFailures(t *testing.T) {
	s := newSession(t, session.RoleUser, session.RoleAssistant)
	r := NewRecovery(nil, zaptest.NewLogger(t))

	assert.False(t, r.Recover(s, errors.New("connection reset"), "gigachat:GigaChat-2"))
	assert.Len(t, s.History(), 2)
}

func TestRecoverWithoutAssistantMessage(t *testing.T) {
	s := newSession(t, session.RoleSystem, session.RoleUser)
	r := NewRecovery(nil, zaptest.NewLogger(t))

	budgetErr := &summarize.UpstreamError{Provider: "gigachat", Body: "token limit"}
	assert.False(t, r.Recover(s, budgetErr, ""))
	assert.Len(t, s.History(), 2)
}

func TestNotesFromHistory(t *testing.T) {
	history := []session.Message{
		{Role: session.RoleUser, Content: "question"},
		{Role: session.RoleTool, Content: "note 1"},
		{Role: session.RoleAssistant, Content: "answer"},
		{Role: session.RoleTool, Content: "note 2"},
	}
	assert.Equal(t, []string{"note 1", "note 2"}, NotesFromHistory(history))
	assert.Empty(t, NotesFromHistory(nil))
}
