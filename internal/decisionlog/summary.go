package decisionlog

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Kocoro-lab/Shannon/go/research/internal/util"
)

// ThoughtSummary aggregates the retained thoughts of a session.
type ThoughtSummary struct {
	Total    int
	ByAgent  map[string]int
	Timeline []ThoughtRecord
}

// Summary counts thoughts per agent type and keeps the first limit thoughts,
// each shortened to 80 characters.
func (l *Log) Summary(limit int) ThoughtSummary {
	thoughts := l.Thoughts()
	s := ThoughtSummary{Total: len(thoughts), ByAgent: make(map[string]int)}
	for i, t := range thoughts {
		s.ByAgent[t.AgentType]++
		if i < limit {
			t.Thought = util.TruncateString(t.Thought, 80, false)
			s.Timeline = append(s.Timeline, t)
		}
	}
	return s
}

// Render writes the summary in the console style.
func (s ThoughtSummary) Render(w io.Writer) {
	var b strings.Builder
	fmt.Fprintf(&b, "\nThought summary (%d total)\n%s\n", s.Total, rule)
	if s.Total == 0 {
		b.WriteString("No thoughts recorded.\n")
		b.WriteString(rule + "\n")
		_, _ = io.WriteString(w, b.String())
		return
	}

	agents := make([]string, 0, len(s.ByAgent))
	for a := range s.ByAgent {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	for _, a := range agents {
		fmt.Fprintf(&b, "%s: %d\n", strings.ToUpper(a), s.ByAgent[a])
	}

	b.WriteString("\nTimeline:\n")
	for i, t := range s.Timeline {
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, t.Timestamp.Format(clockLayout), t.AgentType, t.Thought)
	}
	if s.Total > len(s.Timeline) {
		fmt.Fprintf(&b, "... and %d more\n", s.Total-len(s.Timeline))
	}
	b.WriteString(rule + "\n")
	_, _ = io.WriteString(w, b.String())
}
