package research

import (
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/session"
	"github.com/Kocoro-lab/Shannon/go/research/internal/tokenguard"
)

// Recovery applies the budget-exceeded recovery action to a session.
type Recovery struct {
	guard  *tokenguard.Guard
	logger *zap.Logger
}

func NewRecovery(guard *tokenguard.Guard, logger *zap.Logger) *Recovery {
	if guard == nil {
		guard = tokenguard.NewGuard(nil, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recovery{guard: guard, logger: logger}
}

// Recover truncates the session history before its last assistant message
// when err is a budget-exceeded failure for model. It reports whether the
// history was changed; resubmitting is up to the caller.
func (r *Recovery) Recover(s *session.Session, err error, model string) bool {
	if !r.guard.IsBudgetExceeded(err, model) {
		return false
	}
	before := s.History()
	after := tokenguard.TruncateAtLastAssistant(before)
	if len(after) == len(before) {
		r.logger.Warn("Token budget exceeded but history has no assistant message",
			zap.String("session_id", s.ID),
			zap.String("model", model),
		)
		return false
	}
	s.SetHistory(after)

	fields := []zap.Field{
		zap.String("session_id", s.ID),
		zap.String("model", model),
		zap.Int("messages_before", len(before)),
		zap.Int("messages_after", len(after)),
	}
	if limit, ok := r.guard.TokenLimit(model); ok {
		fields = append(fields, zap.Int("token_limit", limit))
	}
	r.logger.Warn("Token budget exceeded, history truncated", fields...)
	return true
}

// NotesFromHistory returns the content of every tool message in order.
func NotesFromHistory(history []session.Message) []string {
	var notes []string
	for _, m := range history {
		if m.Role == session.RoleTool {
			notes = append(notes, m.Content)
		}
	}
	return notes
}
