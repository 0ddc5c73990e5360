package decisionlog

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const clockLayout = "15:04:05"

var rule = strings.Repeat("─", 60)

// ConsoleRenderer writes human-readable blocks for an operator terminal.
type ConsoleRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleRenderer(w io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{w: w}
}

func (c *ConsoleRenderer) RenderThought(r ThoughtRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s is thinking:\n%s\n", r.Timestamp.Format(clockLayout), strings.ToUpper(r.AgentType), rule)
	fmt.Fprintf(&b, "%s\n", r.Thought)
	if r.Context != "" {
		fmt.Fprintf(&b, "\nContext: %s\n", r.Context)
	}
	b.WriteString(rule + "\n")
	c.write(b.String())
}

func (c *ConsoleRenderer) RenderDelegation(r DelegationRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s delegates a task:\n%s\n", r.Timestamp.Format(clockLayout), r.Supervisor, rule)
	fmt.Fprintf(&b, "Task: %s\n", r.Task)
	if r.Researcher != "" {
		fmt.Fprintf(&b, "Researcher: %s\n", r.Researcher)
	}
	b.WriteString(rule + "\n")
	c.write(b.String())
}

func (c *ConsoleRenderer) RenderSearch(r SearchRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s runs a search:\n%s\n", r.Timestamp.Format(clockLayout), r.Researcher, rule)
	fmt.Fprintf(&b, "Query: %s\n", r.Query)
	if r.Results > 0 {
		fmt.Fprintf(&b, "Results found: %d\n", r.Results)
	}
	b.WriteString(rule + "\n")
	c.write(b.String())
}

func (c *ConsoleRenderer) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, s)
}

// ZapRenderer emits records as structured log entries.
type ZapRenderer struct {
	logger *zap.Logger
}

func NewZapRenderer(logger *zap.Logger) *ZapRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapRenderer{logger: logger.Named("decisions")}
}

func (z *ZapRenderer) RenderThought(r ThoughtRecord) {
	z.logger.Info("Agent thought",
		zap.Time("timestamp", r.Timestamp),
		zap.String("agent_type", r.AgentType),
		zap.String("thought", r.Thought),
		zap.String("context", r.Context),
	)
}

func (z *ZapRenderer) RenderDelegation(r DelegationRecord) {
	z.logger.Info("Task delegated",
		zap.Time("timestamp", r.Timestamp),
		zap.String("supervisor", r.Supervisor),
		zap.String("task", r.Task),
		zap.String("researcher", r.Researcher),
	)
}

func (z *ZapRenderer) RenderSearch(r SearchRecord) {
	z.logger.Info("Search executed",
		zap.Time("timestamp", r.Timestamp),
		zap.String("researcher", r.Researcher),
		zap.String("query", r.Query),
		zap.Int("results", r.Results),
	)
}
