package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
)

func TestThinkToolLogsThought(t *testing.T) {
	log := decisionlog.New()
	ds, err := Build("none", Deps{Log: log})
	require.NoError(t, err)
	d, ok := Find(ds, NameThink)
	require.True(t, ok)
	require.Equal(t, TypeReflection, d.Type)

	result, err := d.Handler(context.Background(), callRequest(map[string]any{
		"reflection": "Found two sources, still missing benchmarks.",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	require.Equal(t, "Reflection recorded: Found two sources, still missing benchmarks.", text)
	require.Equal(t, "Found two sources, still missing benchmarks.", ExtractReflection(text))

	thoughts := log.Thoughts()
	require.Len(t, thoughts, 1)
	require.Equal(t, ResearcherAgent, thoughts[0].AgentType)
}

func TestThinkToolRequiresReflection(t *testing.T) {
	log := decisionlog.New()
	ds, err := Build("none", Deps{Log: log})
	require.NoError(t, err)
	d, _ := Find(ds, NameThink)

	result, err := d.Handler(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	require.True(t, result.IsError)

	result, err = d.Handler(context.Background(), callRequest(map[string]any{"reflection": "   "}))
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Empty(t, log.Thoughts())
}

func TestExtractReflection(t *testing.T) {
	require.Equal(t, "plain note", ExtractReflection("plain note"))
	require.Equal(t, "x", ExtractReflection("Reflection recorded:   x  "))
}
