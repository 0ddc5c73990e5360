package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/research/internal/credentials"
	"github.com/Kocoro-lab/Shannon/go/research/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/research/internal/tracing"
	"github.com/Kocoro-lab/Shannon/go/research/internal/util"
)

const (
	DefaultTavilyBaseURL = "https://api.tavily.com"
	providerTavily       = "tavily"
	maxErrorBody         = 4096
)

// HTTPError is a non-2xx response from the search upstream.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s search http %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *HTTPError) UpstreamProvider() string { return e.Provider }

// HTTPStatus returns the response status code.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

// TavilyOptions configure a TavilyClient.
type TavilyOptions struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Breaker           circuitbreaker.Config
	HTTPClient        *http.Client
}

// TavilyClient calls the Tavily search API through a circuit breaker. It does
// not retry; failures surface to the fan-out.
type TavilyClient struct {
	baseURL string
	apiKey  string
	http    *circuitbreaker.HTTPWrapper
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTavilyClient constructs a client. An empty API key is a configuration error.
func NewTavilyClient(opts TavilyOptions, logger *zap.Logger) (*TavilyClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("tavily: %w: %s", credentials.ErrMissingCredential, credentials.EnvName(providerTavily))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultTavilyBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &TavilyClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    circuitbreaker.NewHTTPWrapper(client, "search", providerTavily, opts.Breaker, logger),
		limiter: limiter,
		logger:  logger,
	}, nil
}

type tavilyRequest struct {
	Query             string `json:"query"`
	APIKey            string `json:"api_key"`
	MaxResults        int    `json:"max_results"`
	Topic             string `json:"topic"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Results []struct {
		URL        string  `json:"url"`
		Title      string  `json:"title"`
		Content    string  `json:"content"`
		RawContent *string `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// Search runs a single query.
func (c *TavilyClient) Search(ctx context.Context, query string, params Params) (results []Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "search.tavily",
		attribute.String("search.query", query),
		attribute.String("search.topic", string(params.Topic)),
	)
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.SearchQueries.WithLabelValues(providerTavily, string(params.Topic), status).Inc()
		metrics.SearchLatency.WithLabelValues(providerTavily).Observe(time.Since(start).Seconds())
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tavily rate limit wait: %w", err)
		}
	}

	topic := params.Topic
	if topic == "" {
		topic = TopicGeneral
	}
	payload, err := json.Marshal(tavilyRequest{
		Query:             query,
		APIKey:            c.apiKey,
		MaxResults:        params.MaxResults,
		Topic:             string(topic),
		IncludeRawContent: params.IncludeRawContent,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			Provider:   providerTavily,
			StatusCode: resp.StatusCode,
			Body:       util.TruncateRunes(strings.TrimSpace(string(body)), 512),
		}
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	results = make([]Result, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		res := Result{URL: r.URL, Title: r.Title, Content: r.Content, Query: query}
		if r.RawContent != nil {
			res.RawContent = *r.RawContent
		}
		results = append(results, res)
	}
	c.logger.Debug("Tavily search completed",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)
	return results, nil
}
