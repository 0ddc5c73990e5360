// Package tools assembles the capability set exposed to the reasoning agent.
package tools

import (
	"context"
	"fmt"

	mcp "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/config"
	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
)

// Tool names as seen by the agent.
const (
	NameResearchComplete = "ResearchComplete"
	NameThink            = "think_tool"
	NameWebSearch        = "web_search"
)

// CapabilityType groups tools by what they do for the agent.
type CapabilityType string

const (
	TypeSignal     CapabilityType = "signal"
	TypeReflection CapabilityType = "reflection"
	TypeSearch     CapabilityType = "search"
)

// Handler executes a tool call.
type Handler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Descriptor is one tool exposed to the agent.
type Descriptor struct {
	Name    string
	Type    CapabilityType
	Tool    mcp.Tool
	Handler Handler
}

// SearchRunner runs the search, dedup and summarize pipeline for a set of
// queries and returns the formatted report. Result cap and topic come from
// the runner's configuration.
type SearchRunner interface {
	Run(ctx context.Context, queries []string) (string, error)
}

// Deps are the collaborators tool handlers need.
type Deps struct {
	Search SearchRunner
	Log    *decisionlog.Log
	Logger *zap.Logger
}

// Build returns ResearchComplete and think_tool, followed by web_search unless
// searchAPI is "none". Every search provider routes to deps.Search.
func Build(searchAPI string, deps Deps) ([]Descriptor, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Log == nil {
		deps.Log = decisionlog.Default()
	}

	out := []Descriptor{
		researchCompleteTool(),
		newThinkTool(deps.Log, deps.Logger).descriptor(),
	}

	switch searchAPI {
	case config.SearchAPINone:
		return out, nil
	case config.SearchAPITavily, config.SearchAPIGigaChat:
		if deps.Search == nil {
			return nil, fmt.Errorf("search api %q requires a search runner", searchAPI)
		}
		out = append(out, newWebSearchTool(deps.Search, deps.Logger).descriptor())
		return out, nil
	}
	return nil, fmt.Errorf("unknown search api %q", searchAPI)
}

// Names lists descriptor names in order.
func Names(ds []Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

// Find returns the descriptor with the given name.
func Find(ds []Descriptor, name string) (Descriptor, bool) {
	for _, d := range ds {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

func researchCompleteTool() Descriptor {
	tool := mcp.NewTool(
		NameResearchComplete,
		mcp.WithDescription("Call this tool to indicate that the research is complete."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
	return Descriptor{
		Name: NameResearchComplete,
		Type: TypeSignal,
		Tool: tool,
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("Research marked as complete."), nil
		},
	}
}

// argumentsMap returns the call arguments as a map.
func argumentsMap(req mcp.CallToolRequest) map[string]any {
	args, _ := req.Params.Arguments.(map[string]any)
	return args
}
