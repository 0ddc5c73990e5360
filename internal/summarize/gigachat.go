package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/research/internal/util"
)

const (
	ProviderGigaChat = "gigachat"

	DefaultGigaChatBaseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	DefaultGigaChatAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	DefaultGigaChatScope   = "GIGACHAT_API_CORP"

	tokenRefreshSkew = 60 * time.Second
)

// GigaChatOptions configure a GigaChatCondenser.
type GigaChatOptions struct {
	BaseURL string
	// AuthURL exchanges Credentials for an access token. When empty,
	// Credentials is sent as the bearer token directly.
	AuthURL           string
	Scope             string
	Credentials       string
	Model             string
	MaxTokens         int
	StructuredRetries int
	// HTTPClient defaults to a client without Timeout.
	HTTPClient *http.Client
	Breaker    circuitbreaker.Config
}

// GigaChatCondenser calls the GigaChat chat completions API and parses a JSON
// summary out of the reply.
type GigaChatCondenser struct {
	opts   GigaChatOptions
	http   *circuitbreaker.HTTPWrapper
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewGigaChatCondenser(opts GigaChatOptions, logger *zap.Logger) (*GigaChatCondenser, error) {
	if strings.TrimSpace(opts.Credentials) == "" {
		return nil, fmt.Errorf("gigachat: credentials are empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultGigaChatBaseURL
	}
	if opts.Scope == "" {
		opts.Scope = DefaultGigaChatScope
	}
	if opts.Model == "" {
		opts.Model = "GigaChat-2-Max"
	}
	if opts.HTTPClient == nil {
		// Calls are bounded by the caller's context only.
		opts.HTTPClient = &http.Client{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &GigaChatCondenser{
		opts:   opts,
		http:   circuitbreaker.NewHTTPWrapper(opts.HTTPClient, "condense", ProviderGigaChat, opts.Breaker, logger),
		logger: logger,
		now:    time.Now,
	}, nil
}

func (c *GigaChatCondenser) Condense(ctx context.Context, text string, asOf time.Time) (Summary, error) {
	prompt := BuildPrompt(text, asOf)
	return withStructuredRetries(ctx, c.opts.StructuredRetries, func() (Summary, error) {
		reply, err := c.complete(ctx, prompt)
		if err != nil {
			return Summary{}, err
		}
		return ParseSummary(reply)
	})
}

type gigaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type gigaChatRequest struct {
	Model     string            `json:"model"`
	Messages  []gigaChatMessage `json:"messages"`
	MaxTokens int               `json:"max_tokens,omitempty"`
}

type gigaChatResponse struct {
	Choices []struct {
		Message      gigaChatMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
}

func (c *GigaChatCondenser) complete(ctx context.Context, prompt string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(gigaChatRequest{
		Model:     c.opts.Model,
		Messages:  []gigaChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal gigachat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gigachat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &UpstreamError{Provider: ProviderGigaChat, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			c.invalidateToken()
		}
		return "", readUpstreamError(ProviderGigaChat, resp)
	}

	var decoded gigaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode gigachat response: %v", ErrMalformedOutput, err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%w: gigachat returned no choices", ErrMalformedOutput)
	}
	return decoded.Choices[0].Message.Content, nil
}

type gigaChatToken struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix millis
}

func (c *GigaChatCondenser) accessToken(ctx context.Context) (string, error) {
	if c.opts.AuthURL == "" {
		return c.opts.Credentials, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Add(tokenRefreshSkew).Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{"scope": {c.opts.Scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build gigachat auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+c.opts.Credentials)
	req.Header.Set("RqUID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &AuthError{Provider: ProviderGigaChat, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &AuthError{
			Provider:   ProviderGigaChat,
			StatusCode: resp.StatusCode,
			Body:       util.TruncateRunes(strings.TrimSpace(string(body)), 1024),
		}
	}

	var tok gigaChatToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &AuthError{Provider: ProviderGigaChat, Err: fmt.Errorf("decode auth response: %w", err)}
	}
	if tok.AccessToken == "" {
		return "", &AuthError{Provider: ProviderGigaChat, Err: errors.New("auth response has no access_token")}
	}
	c.token = tok.AccessToken
	c.expiresAt = time.UnixMilli(tok.ExpiresAt)
	c.logger.Debug("GigaChat access token refreshed", zap.Time("expires_at", c.expiresAt))
	return c.token, nil
}

func (c *GigaChatCondenser) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func readUpstreamError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &UpstreamError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       util.TruncateRunes(strings.TrimSpace(string(body)), 1024),
	}
}
