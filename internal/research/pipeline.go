// Package research wires the search, dedup and summarize stages into the
// pipeline behind the web_search tool.
package research

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/decisionlog"
	"github.com/Kocoro-lab/Shannon/go/research/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/research/internal/search"
	"github.com/Kocoro-lab/Shannon/go/research/internal/summarize"
	"github.com/Kocoro-lab/Shannon/go/research/internal/tracing"
)

// DefaultResearcher names the agent recorded for pipeline searches.
const DefaultResearcher = "researcher"

// Options fix the parameters injected into every run.
type Options struct {
	MaxResults    int
	MaxResultsCap int
	Topic         search.Topic
	Researcher    string
}

// Pipeline turns queries into a consolidated report.
type Pipeline struct {
	fanout     *search.FanOut
	summarizer *summarize.Summarizer
	log        *decisionlog.Log
	params     search.Params
	maxCap     int
	researcher string
	logger     *zap.Logger
}

// NewPipeline validates opts and returns a pipeline. Raw content is always requested.
func NewPipeline(fanout *search.FanOut, summarizer *summarize.Summarizer, log *decisionlog.Log, opts Options, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if log == nil {
		log = decisionlog.Default()
	}
	if opts.Researcher == "" {
		opts.Researcher = DefaultResearcher
	}
	if opts.Topic == "" {
		opts.Topic = search.TopicGeneral
	}
	params := search.Params{MaxResults: opts.MaxResults, Topic: opts.Topic, IncludeRawContent: true}
	if err := params.Validate(opts.MaxResultsCap); err != nil {
		return nil, fmt.Errorf("invalid search parameters: %w", err)
	}
	return &Pipeline{
		fanout:     fanout,
		summarizer: summarizer,
		log:        log,
		params:     params,
		maxCap:     opts.MaxResultsCap,
		researcher: opts.Researcher,
		logger:     logger,
	}, nil
}

// Params returns the parameters used by Run.
func (p *Pipeline) Params() search.Params { return p.params }

// Run executes queries with the configured parameters.
func (p *Pipeline) Run(ctx context.Context, queries []string) (string, error) {
	return p.RunWithParams(ctx, queries, p.params)
}

// RunWithParams fans out queries, deduplicates the batches and summarizes the
// unique results. Only search failures and cancellation are returned as errors.
func (p *Pipeline) RunWithParams(ctx context.Context, queries []string, params search.Params) (report string, err error) {
	if len(queries) == 0 {
		return summarize.NoResultsMessage, nil
	}
	if err := params.Validate(p.maxCap); err != nil {
		return "", err
	}

	ctx, span := tracing.StartSpan(ctx, "research.pipeline",
		attribute.Int("research.queries", len(queries)),
		attribute.String("research.topic", string(params.Topic)),
	)
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.PipelineRuns.WithLabelValues(status).Inc()
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
		span.End()
	}()

	batches, err := p.fanout.Run(ctx, queries, params)
	if err != nil {
		return "", err
	}
	for _, b := range batches {
		p.log.LogSearch(p.researcher, b.Query, len(b.Results))
	}

	set := search.Deduplicate(batches)
	metrics.UniqueResults.Observe(float64(set.Len()))
	metrics.DuplicateResults.Add(float64(set.Duplicates))
	if set.Skipped > 0 {
		p.logger.Debug("Skipped search results without URL", zap.Int("skipped", set.Skipped))
	}

	report, err = p.summarizer.Report(ctx, set)
	if err != nil {
		return "", fmt.Errorf("summarize results: %w", err)
	}

	p.logger.Info("Research pipeline completed",
		zap.Int("queries", len(queries)),
		zap.Int("unique_results", set.Len()),
		zap.Int("duplicates", set.Duplicates),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}
