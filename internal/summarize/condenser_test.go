package summarize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    Summary
		wantErr bool
	}{
		{"plain", `{"summary":"s","key_excerpts":"k"}`, Summary{"s", "k"}, false},
		{"fenced", "```json\n{\"summary\":\"s\",\"key_excerpts\":\"k\"}\n```", Summary{"s", "k"}, false},
		{"chatter", `Here you go: {"summary":"s","key_excerpts":""} hope it helps`, Summary{"s", ""}, false},
		{"not json", "I cannot do that", Summary{}, true},
		{"empty summary", `{"summary":"","key_excerpts":"k"}`, Summary{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSummary(tt.reply)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPromptDate(t *testing.T) {
	p := BuildPrompt("body", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, p, "Mon Jan 15, 2024")
	assert.Contains(t, p, "<webpage_content>\nbody\n</webpage_content>")
}

func TestWithStructuredRetries(t *testing.T) {
	calls := 0
	s, err := withStructuredRetries(context.Background(), 3, func() (Summary, error) {
		calls++
		if calls < 3 {
			return Summary{}, ErrMalformedOutput
		}
		return Summary{SummaryText: "ok"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", s.SummaryText)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = withStructuredRetries(context.Background(), 2, func() (Summary, error) {
		calls++
		return Summary{}, ErrMalformedOutput
	})
	assert.ErrorIs(t, err, ErrMalformedOutput)
	assert.Equal(t, 2, calls)

	calls = 0
	boom := errors.New("boom")
	_, err = withStructuredRetries(context.Background(), 5, func() (Summary, error) {
		calls++
		return Summary{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "non-structural errors are not retried")
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{Provider: "gigachat", StatusCode: 413, Body: "Tokens limit exceeded"}
	assert.Equal(t, "gigachat upstream error (http 413): Tokens limit exceeded", err.Error())
}
