// Package summarize condenses search results through an external language
// model under a per-item timeout and assembles the consolidated report.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout renders dates like "Mon Jan 2, 2006" in prompts.
const DateLayout = "Mon Jan 2, 2006"

// ErrMalformedOutput marks a model reply that did not match the summary schema.
var ErrMalformedOutput = errors.New("malformed structured output")

// Summary is the structured condensation of one web page.
type Summary struct {
	SummaryText string `json:"summary"`
	KeyExcerpts string `json:"key_excerpts"`
}

// Block renders the summary as delimited summary and key-excerpts sections.
func (s Summary) Block() string {
	return fmt.Sprintf("<summary>\n%s\n</summary>\n\n<key_excerpts>\n%s\n</key_excerpts>", s.SummaryText, s.KeyExcerpts)
}

// Condenser turns page text into a Summary. Implementations may block until
// ctx is done.
type Condenser interface {
	Condense(ctx context.Context, text string, asOf time.Time) (Summary, error)
}

// CondenserFunc adapts a function to Condenser.
type CondenserFunc func(ctx context.Context, text string, asOf time.Time) (Summary, error)

func (f CondenserFunc) Condense(ctx context.Context, text string, asOf time.Time) (Summary, error) {
	return f(ctx, text, asOf)
}

// UpstreamError is a failed call to a model provider. Provider carries the
// provider tag used by token budget classification.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(" upstream error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// UpstreamProvider returns the provider tag.
func (e *UpstreamError) UpstreamProvider() string { return e.Provider }

// HTTPStatus returns the upstream status code, 0 for transport failures.
func (e *UpstreamError) HTTPStatus() int { return e.StatusCode }

// AuthError is a failed credential exchange with a model provider. It is
// never a budget failure, whatever its body says.
type AuthError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(" authentication failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamProvider returns the provider tag.
func (e *AuthError) UpstreamProvider() string { return e.Provider }

// AuthFailure marks the error as a credential problem.
func (e *AuthError) AuthFailure() bool { return true }

const promptTemplate = `You are condensing the raw content of a web page so a research agent can use it later.
Today's date is %s.

Keep the main facts, figures, dates and named entities. Drop navigation, ads and boilerplate.
Aim for roughly a quarter of the original length.

Reply with a single JSON object and nothing else:
{"summary": "<condensed text>", "key_excerpts": "<up to five verbatim quotes, one per line>"}

<webpage_content>
%s
</webpage_content>`

// BuildPrompt renders the condensation prompt for text as of the given date.
func BuildPrompt(text string, asOf time.Time) string {
	return fmt.Sprintf(promptTemplate, asOf.Format(DateLayout), text)
}

// summarySchema is the JSON schema handed to providers with structured output.
var summarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{
			"type":        "string",
			"description": "Condensed page content",
		},
		"key_excerpts": map[string]any{
			"type":        "string",
			"description": "Important verbatim quotes, one per line",
		},
	},
	"required":             []string{"summary", "key_excerpts"},
	"additionalProperties": false,
}

// ParseSummary decodes a model reply, tolerating markdown code fences.
func ParseSummary(reply string) (Summary, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}

	var out Summary
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if strings.TrimSpace(out.SummaryText) == "" {
		return Summary{}, fmt.Errorf("%w: empty summary", ErrMalformedOutput)
	}
	return out, nil
}

// withStructuredRetries calls fn up to attempts times while it reports
// ErrMalformedOutput. Other errors return immediately.
func withStructuredRetries(ctx context.Context, attempts int, fn func() (Summary, error)) (Summary, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		s, err := fn()
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrMalformedOutput) {
			return Summary{}, err
		}
		lastErr = err
	}
	return Summary{}, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
