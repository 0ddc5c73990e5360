package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/research/internal/config"
	"github.com/Kocoro-lab/Shannon/go/research/internal/credentials"
)

func TestNewCondenserSelectsProvider(t *testing.T) {
	t.Setenv(credentials.ModeEnv, "true")
	creds := credentials.NewResolver(config.CredentialsConfig{APIKeys: map[string]string{
		"gigachat_api_key": "g",
		"openai_api_key":   "o",
	}})
	breaker := circuitbreaker.DefaultConfig()

	c, err := NewCondenser(config.SummarizationConfig{Model: "gigachat:GigaChat-2-Max"}, breaker, creds, nil)
	require.NoError(t, err)
	g, ok := c.(*GigaChatCondenser)
	require.True(t, ok)
	assert.Equal(t, "GigaChat-2-Max", g.opts.Model)

	c, err = NewCondenser(config.SummarizationConfig{Model: "openai:gpt-4.1-mini"}, breaker, creds, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAICondenser{}, c)
}

func TestNewCondenserErrors(t *testing.T) {
	t.Setenv(credentials.ModeEnv, "true")
	creds := credentials.NewResolver(config.CredentialsConfig{})

	_, err := NewCondenser(config.SummarizationConfig{Model: "GigaChat-2-Max"}, circuitbreaker.Config{}, creds, nil)
	assert.Error(t, err)

	_, err = NewCondenser(config.SummarizationConfig{Model: "gigachat:GigaChat-2"}, circuitbreaker.Config{}, creds, nil)
	assert.ErrorIs(t, err, credentials.ErrMissingCredential)

	t.Setenv(credentials.ModeEnv, "true")
	creds = credentials.NewResolver(config.CredentialsConfig{APIKeys: map[string]string{"anthropic_api_key": "a"}})
	_, err = NewCondenser(config.SummarizationConfig{Model: "anthropic:claude"}, circuitbreaker.Config{}, creds, nil)
	assert.ErrorContains(t, err, "not supported")
}
