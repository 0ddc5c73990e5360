package research

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/research/internal/config"
	"github.com/Kocoro-lab/Shannon/go/research/internal/credentials"
	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
	"github.com/Kocoro-lab/Shannon/go/research/internal/search"
	"github.com/Kocoro-lab/Shannon/go/research/internal/summarize"
)

// NewFromConfig builds the production pipeline: a Tavily-backed fan-out and
// the condenser selected by summarization.model. Both search APIs share the
// Tavily backend.
func NewFromConfig(cfg *config.Config, creds *credentials.Resolver, log *decisionlog.Log, logger *zap.Logger) (*Pipeline, error) {
	if cfg.Search.API == config.SearchAPINone {
		return nil, fmt.Errorf("search is disabled (search.api=none)")
	}

	breaker := cfg.CircuitBreaker.ToConfig()
	tavilyKey, err := creds.Require(credentials.ProviderTavily)
	if err != nil {
		return nil, err
	}
	searcher, err := search.NewTavilyClient(search.TavilyOptions{
		BaseURL:           cfg.Search.BaseURL,
		APIKey:            tavilyKey,
		Timeout:           cfg.Search.Timeout,
		RequestsPerSecond: cfg.Search.RequestsPerSecond,
		Breaker:           circuitbreaker.ForUpstream("search", breaker),
	}, logger)
	if err != nil {
		return nil, err
	}

	condenser, err := summarize.NewCondenser(cfg.Summarization, circuitbreaker.ForUpstream("condense", breaker), creds, logger)
	if err != nil {
		return nil, err
	}

	topic, err := search.ParseTopic(cfg.Search.Topic)
	if err != nil {
		return nil, err
	}

	return NewPipeline(
		search.NewFanOut(searcher, cfg.Search.MaxParallel, logger),
		summarize.NewSummarizer(condenser, summarize.Options{
			Timeout:          cfg.Summarization.Timeout,
			MaxContentLength: cfg.Summarization.MaxContentLength,
		}, logger),
		log,
		Options{
			MaxResults:    cfg.Search.MaxResults,
			MaxResultsCap: cfg.Search.MaxResultsCap,
			Topic:         topic,
		},
		logger,
	)
}
