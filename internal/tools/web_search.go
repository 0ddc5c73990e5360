package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcp "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

type webSearchTool struct {
	runner SearchRunner
	logger *zap.Logger
}

func newWebSearchTool(runner SearchRunner, logger *zap.Logger) *webSearchTool {
	return &webSearchTool{runner: runner, logger: logger}
}

func (t *webSearchTool) descriptor() Descriptor {
	return Descriptor{
		Name:    NameWebSearch,
		Type:    TypeSearch,
		Tool:    t.definition(),
		Handler: t.handle,
	}
}

func (t *webSearchTool) definition() mcp.Tool {
	return mcp.NewTool(
		NameWebSearch,
		mcp.WithDescription("A search engine optimized for comprehensive, accurate and trusted results. "+
			"Useful for answering questions about current events. Returns summarized results per source."),
		mcp.WithArray(
			"queries",
			mcp.Required(),
			mcp.Description("List of search queries to execute concurrently."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func (t *webSearchTool) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queries, err := stringSlice(argumentsMap(req), "queries")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	start := time.Now()
	report, err := t.runner.Run(ctx, queries)
	if err != nil {
		t.logger.Error("web_search failed", zap.Strings("queries", queries), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	t.logger.Debug("web_search completed",
		zap.Int("queries", len(queries)),
		zap.Duration("duration", time.Since(start)),
	)
	return mcp.NewToolResultText(report), nil
}

// stringSlice reads a non-empty list of non-blank strings. A single string
// is accepted as a one-element list.
func stringSlice(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("required argument %q not found", key)
	}

	var items []string
	switch v := raw.(type) {
	case string:
		items = []string{v}
	case []string:
		items = v
	case []any:
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("argument %q item %d is not a string", key, i)
			}
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("argument %q must be an array of strings", key)
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("argument %q must contain at least one query", key)
	}
	return out, nil
}
