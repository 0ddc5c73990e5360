// Package decisionlog records the reasoning steps of research agents.
//
// Thoughts are retained and can be read back until Clear is called.
// Delegation and search records are only rendered, never retained.
package decisionlog

import (
	"os"
	"sync"
	"time"

	"github.com/Kocoro-lab/Shannon/go/research/internal/metrics"
)

// ThoughtRecord is an agent reflection. Records are never mutated after append.
type ThoughtRecord struct {
	Timestamp time.Time `json:"timestamp"`
	AgentType string    `json:"agent_type"`
	Thought   string    `json:"thought"`
	Context   string    `json:"context,omitempty"`
}

// DelegationRecord is a task handed from a supervisor to a researcher.
type DelegationRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Supervisor string    `json:"supervisor"`
	Task       string    `json:"task"`
	Researcher string    `json:"researcher,omitempty"`
}

// SearchRecord is a search executed by a researcher.
type SearchRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Researcher string    `json:"researcher"`
	Query      string    `json:"query"`
	Results    int       `json:"results"`
}

// Renderer publishes records as they are appended.
type Renderer interface {
	RenderThought(ThoughtRecord)
	RenderDelegation(DelegationRecord)
	RenderSearch(SearchRecord)
}

// Log is an append-only decision log. It is safe for concurrent use.
type Log struct {
	mu        sync.Mutex
	enabled   bool
	thoughts  []ThoughtRecord
	renderers []Renderer
	last      time.Time
	now       func() time.Time
}

// New creates an enabled log rendering to the given renderers.
func New(renderers ...Renderer) *Log {
	return &Log{
		enabled:   true,
		renderers: renderers,
		now:       time.Now,
	}
}

var (
	defaultOnce sync.Once
	defaultLog  *Log
)

// Default returns the process-wide log, creating it on first use with a
// console renderer on stdout.
func Default() *Log {
	defaultOnce.Do(func() {
		defaultLog = New(NewConsoleRenderer(os.Stdout))
	})
	return defaultLog
}

// AddRenderer attaches another renderer.
func (l *Log) AddRenderer(r Renderer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.renderers = append(l.renderers, r)
}

// stamp returns a timestamp no earlier than the previous one. Caller holds l.mu.
func (l *Log) stamp() time.Time {
	ts := l.now()
	if ts.Before(l.last) {
		ts = l.last
	}
	l.last = ts
	return ts
}

func (l *Log) snapshotRenderers() []Renderer {
	out := make([]Renderer, len(l.renderers))
	copy(out, l.renderers)
	return out
}

// LogThought appends a thought and renders it. No-op while disabled.
func (l *Log) LogThought(agentType, thought, context string) {
	l.mu.Lock()
	if !l.enabled {
		l.mu.Unlock()
		return
	}
	rec := ThoughtRecord{Timestamp: l.stamp(), AgentType: agentType, Thought: thought, Context: context}
	l.thoughts = append(l.thoughts, rec)
	renderers := l.snapshotRenderers()
	l.mu.Unlock()

	metrics.DecisionRecords.WithLabelValues("thought").Inc()
	for _, r := range renderers {
		r.RenderThought(rec)
	}
}

// LogDelegation renders a delegation. It is not retained.
func (l *Log) LogDelegation(supervisor, task, researcher string) {
	l.mu.Lock()
	if !l.enabled {
		l.mu.Unlock()
		return
	}
	rec := DelegationRecord{Timestamp: l.stamp(), Supervisor: supervisor, Task: task, Researcher: researcher}
	renderers := l.snapshotRenderers()
	l.mu.Unlock()

	metrics.DecisionRecords.WithLabelValues("delegation").Inc()
	for _, r := range renderers {
		r.RenderDelegation(rec)
	}
}

// LogSearch renders a search. It is not retained.
func (l *Log) LogSearch(researcher, query string, results int) {
	l.mu.Lock()
	if !l.enabled {
		l.mu.Unlock()
		return
	}
	rec := SearchRecord{Timestamp: l.stamp(), Researcher: researcher, Query: query, Results: results}
	renderers := l.snapshotRenderers()
	l.mu.Unlock()

	metrics.DecisionRecords.WithLabelValues("search").Inc()
	for _, r := range renderers {
		r.RenderSearch(rec)
	}
}

// Thoughts returns a copy of every retained thought in append order.
func (l *Log) Thoughts() []ThoughtRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ThoughtRecord, len(l.thoughts))
	copy(out, l.thoughts)
	return out
}

// Clear drops retained thoughts. Enablement and renderers are kept.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.thoughts = nil
	l.last = time.Time{}
}

func (l *Log) Enable() {
	l.mu.Lock()
	l.enabled = true
	l.mu.Unlock()
}

func (l *Log) Disable() {
	l.mu.Lock()
	l.enabled = false
	l.mu.Unlock()
}

func (l *Log) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}
