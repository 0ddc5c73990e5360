package tokenguard

import (
	"github.com/Kocoro-lab/Shannon/go/research/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/research/internal/session"
)

// TruncateAtLastAssistant returns the messages strictly before the last
// assistant message. Without an assistant message the history is returned
// unchanged. The result shares the input's backing array.
func TruncateAtLastAssistant(history []session.Message) []session.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleAssistant {
			metrics.HistoryTruncations.Inc()
			return history[:i:i]
		}
	}
	return history
}
