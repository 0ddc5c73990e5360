package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Kocoro-lab/Shannon/go/research/internal/credentials"
)

func TestTavilySearch(t *testing.T) {
	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"query": "go generics",
			"results": [
				{"url": "https://go.dev/blog/intro-generics", "title": "Intro", "content": "short", "raw_content": "long body", "score": 0.9},
				{"url": "https://go.dev/doc", "title": "Docs", "content": "docs", "raw_content": null, "score": 0.5}
			]
		}`))
	}))
	defer srv.Close()

	c, err := NewTavilyClient(TavilyOptions{BaseURL: srv.URL, APIKey: "tvly-test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	results, err := c.Search(context.Background(), "go generics", Params{MaxResults: 3, Topic: TopicNews, IncludeRawContent: true})
	require.NoError(t, err)

	assert.Equal(t, "go generics", got.Query)
	assert.Equal(t, "tvly-test", got.APIKey)
	assert.Equal(t, 3, got.MaxResults)
	assert.Equal(t, "news", got.Topic)
	assert.True(t, got.IncludeRawContent)

	require.Len(t, results, 2)
	assert.Equal(t, Result{
		URL:        "https://go.dev/blog/intro-generics",
		Title:      "Intro",
		Content:    "short",
		RawContent: "long body",
		Query:      "go generics",
	}, results[0])
	assert.Empty(t, results[1].RawContent)
}

func TestTavilyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewTavilyClient(TavilyOptions{BaseURL: srv.URL, APIKey: "bad"}, nil)
	require.NoError(t, err)

	_, err = c.Search(context.Background(), "q", Params{MaxResults: 1})
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, "tavily", httpErr.Provider)
	assert.Contains(t, httpErr.Body, "invalid api key")
}

func TestTavilyMissingKey(t *testing.T) {
	_, err := NewTavilyClient(TavilyOptions{}, nil)
	assert.ErrorIs(t, err, credentials.ErrMissingCredential)
}
