package decisionlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	l := New()
	l.LogThought("supervisor", "plan", "")
	l.LogThought("researcher", strings.Repeat("x", 120), "")
	l.LogThought("researcher", "done", "")

	s := l.Summary(2)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, map[string]int{"supervisor": 1, "researcher": 2}, s.ByAgent)
	require.Len(t, s.Timeline, 2)
	assert.Len(t, []rune(s.Timeline[1].Thought), 80)
	assert.True(t, strings.HasSuffix(s.Timeline[1].Thought, "..."))

	// Retained thoughts are not shortened.
	assert.Len(t, l.Thoughts()[1].Thought, 120)

	var buf bytes.Buffer
	s.Render(&buf)
	out := buf.String()
	assert.Contains(t, out, "Thought summary (3 total)")
	assert.Contains(t, out, "RESEARCHER: 2")
	assert.Contains(t, out, "... and 1 more")
}

func TestSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	New().Summary(10).Render(&buf)
	assert.Contains(t, buf.String(), "No thoughts recorded.")
}
