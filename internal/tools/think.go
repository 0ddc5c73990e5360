package tools

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
)

const reflectionPrefix = "Reflection recorded:"

// ResearcherAgent is the agent type recorded for think_tool reflections.
const ResearcherAgent = "researcher"

type thinkTool struct {
	log    *decisionlog.Log
	logger *zap.Logger
}

func newThinkTool(log *decisionlog.Log, logger *zap.Logger) *thinkTool {
	return &thinkTool{log: log, logger: logger}
}

func (t *thinkTool) descriptor() Descriptor {
	return Descriptor{
		Name:    NameThink,
		Type:    TypeReflection,
		Tool:    t.definition(),
		Handler: t.handle,
	}
}

func (t *thinkTool) definition() mcp.Tool {
	return mcp.NewTool(
		NameThink,
		mcp.WithDescription("Strategic reflection tool for research planning. Use it after each search to "+
			"assess what was found, what is missing and whether to continue searching."),
		mcp.WithString(
			"reflection",
			mcp.Required(),
			mcp.Description("Detailed reflection on research progress, findings, gaps and next steps."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func (t *thinkTool) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reflection, err := req.RequireString("reflection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reflection = strings.TrimSpace(reflection)
	if reflection == "" {
		return mcp.NewToolResultError("reflection cannot be empty"), nil
	}

	t.log.LogThought(ResearcherAgent, reflection, "")
	t.logger.Debug("think_tool recorded reflection", zap.Int("reflection_len", len(reflection)))
	return mcp.NewToolResultText(fmt.Sprintf("%s %s", reflectionPrefix, reflection)), nil
}

// ExtractReflection strips the think_tool confirmation prefix from tool output.
func ExtractReflection(content string) string {
	if strings.Contains(content, reflectionPrefix) {
		return strings.TrimSpace(strings.Replace(content, reflectionPrefix, "", 1))
	}
	return content
}
