package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
)

const ProviderOpenAI = "openai"

// OpenAIOptions configure an OpenAICondenser. BaseURL may point at any
// OpenAI-compatible endpoint.
type OpenAIOptions struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	StructuredRetries int
	HTTPClient        *http.Client
	Breaker           circuitbreaker.Config
}

// OpenAICondenser requests a JSON-schema constrained summary.
type OpenAICondenser struct {
	client    *openai.Client
	http      *circuitbreaker.HTTPWrapper
	model     string
	maxTokens int
	retries   int
	logger    *zap.Logger
}

func NewOpenAICondenser(opts OpenAIOptions, logger *zap.Logger) (*OpenAICondenser, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("openai: api key is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Model == "" {
		opts.Model = "gpt-4.1-mini"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Calls are bounded by the caller's context only.
		httpClient = &http.Client{}
	}
	hw := circuitbreaker.NewHTTPWrapper(httpClient, "condense", ProviderOpenAI, opts.Breaker, logger)

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
		option.WithMiddleware(func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
			return hw.DoWith(req, next)
		}),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	return &OpenAICondenser{
		client:    &client,
		http:      hw,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		retries:   opts.StructuredRetries,
		logger:    logger,
	}, nil
}

func (c *OpenAICondenser) Condense(ctx context.Context, text string, asOf time.Time) (Summary, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(text, asOf)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "webpage_summary",
					Description: openai.String("Condensed web page with key excerpts"),
					Schema:      summarySchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}

	return withStructuredRetries(ctx, c.retries, func() (Summary, error) {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return Summary{}, wrapOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return Summary{}, fmt.Errorf("%w: no choices", ErrMalformedOutput)
		}
		return ParseSummary(resp.Choices[0].Message.Content)
	})
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{Provider: ProviderOpenAI, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &UpstreamError{Provider: ProviderOpenAI, Err: err}
}
