package tools

import (
	"context"
	"errors"
	"testing"

	mcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
)

type stubRunner struct {
	queries []string
	report  string
	err     error
}

func (s *stubRunner) Run(ctx context.Context, queries []string) (string, error) {
	s.queries = queries
	return s.report, s.err
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestBuildByProvider(t *testing.T) {
	runner := &stubRunner{}
	tests := []struct {
		api  string
		want []string
	}{
		{"tavily", []string{NameResearchComplete, NameThink, NameWebSearch}},
		{"gigachat", []string{NameResearchComplete, NameThink, NameWebSearch}},
		{"none", []string{NameResearchComplete, NameThink}},
	}
	for _, tt := range tests {
		t.Run(tt.api, func(t *testing.T) {
			ds, err := Build(tt.api, Deps{Search: runner, Log: decisionlog.New(), Logger: zaptest.NewLogger(t)})
			require.NoError(t, err)
			require.Equal(t, tt.want, Names(ds))
			for _, d := range ds {
				require.Equal(t, d.Name, d.Tool.Name)
				require.NotNil(t, d.Handler)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := Build("bing", Deps{Search: &stubRunner{}})
	require.Error(t, err)

	_, err = Build("tavily", Deps{})
	require.Error(t, err)

	ds, err := Build("none", Deps{})
	require.NoError(t, err)
	require.Len(t, ds, 2)
}

func TestBuildIsFreshPerCall(t *testing.T) {
	a, err := Build("none", Deps{Log: decisionlog.New()})
	require.NoError(t, err)
	b, err := Build("none", Deps{Log: decisionlog.New()})
	require.NoError(t, err)
	a[0].Name = "changed"
	require.Equal(t, NameResearchComplete, b[0].Name)
}

func TestResearchCompleteHandler(t *testing.T) {
	ds, err := Build("none", Deps{Log: decisionlog.New()})
	require.NoError(t, err)
	d, ok := Find(ds, NameResearchComplete)
	require.True(t, ok)
	require.Equal(t, TypeSignal, d.Type)

	result, err := d.Handler(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
}

func TestWebSearchHandler(t *testing.T) {
	runner := &stubRunner{report: "Search results: ..."}
	ds, err := Build("tavily", Deps{Search: runner, Log: decisionlog.New()})
	require.NoError(t, err)
	d, ok := Find(ds, NameWebSearch)
	require.True(t, ok)
	require.Equal(t, TypeSearch, d.Type)

	result, err := d.Handler(context.Background(), callRequest(map[string]any{
		"queries": []any{" go generics ", "", "go iterators"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "Search results: ...", resultText(t, result))
	require.Equal(t, []string{"go generics", "go iterators"}, runner.queries)
}

func TestWebSearchHandlerErrors(t *testing.T) {
	runner := &stubRunner{err: errors.New("tavily down")}
	ds, err := Build("gigachat", Deps{Search: runner, Log: decisionlog.New()})
	require.NoError(t, err)
	d, _ := Find(ds, NameWebSearch)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing", map[string]any{}, `required argument "queries" not found`},
		{"wrong type", map[string]any{"queries": 42}, "must be an array of strings"},
		{"non-string item", map[string]any{"queries": []any{"ok", 1}}, "item 1 is not a string"},
		{"blank", map[string]any{"queries": []any{"  "}}, "at least one query"},
		{"runner error", map[string]any{"queries": []any{"q"}}, "search failed: tavily down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := d.Handler(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			require.True(t, result.IsError)
			require.Contains(t, resultText(t, result), tt.want)
		})
	}
}
