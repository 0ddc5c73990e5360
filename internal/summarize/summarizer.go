package summarize

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kocoro-lab/Shannon/go/research/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/research/internal/search"
	"github.com/Kocoro-lab/Shannon/go/research/internal/tracing"
	"github.com/Kocoro-lab/Shannon/go/research/internal/util"
)

const (
	DefaultTimeout          = 60 * time.Second
	DefaultMaxContentLength = 50000
)

// Entry is one unique result with its populated summary slot.
type Entry struct {
	URL     string
	Title   string
	Query   string
	Summary string
	// Outcome is one of the metrics.Outcome* labels.
	Outcome string
}

// Options tune a Summarizer. Zero values take the package defaults.
type Options struct {
	Timeout          time.Duration
	MaxContentLength int
}

// Summarizer condenses every unique result concurrently. Each item gets its
// own timeout; a slow or failing item falls back to the result's short
// content without delaying its siblings.
type Summarizer struct {
	condenser  Condenser
	timeout    time.Duration
	maxContent int
	now        func() time.Time
	logger     *zap.Logger
}

func NewSummarizer(condenser Condenser, opts Options, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = DefaultMaxContentLength
	}
	return &Summarizer{
		condenser:  condenser,
		timeout:    opts.Timeout,
		maxContent: opts.MaxContentLength,
		now:        time.Now,
		logger:     logger,
	}
}

// Summarize returns one entry per unique result in first-seen order. A nil set
// is empty. Condensation failures never surface; only cancellation of ctx does.
func (s *Summarizer) Summarize(ctx context.Context, set *search.UniqueSet) ([]Entry, error) {
	if set == nil {
		return nil, ctx.Err()
	}
	results := set.Results()
	entries := make([]Entry, len(results))
	asOf := s.now()

	var g errgroup.Group
	for i, r := range results {
		g.Go(func() error {
			entry := Entry{URL: r.URL, Title: r.Title, Query: r.Query}
			if r.RawContent == "" {
				entry.Summary, entry.Outcome = r.Content, metrics.OutcomeRaw
			} else {
				entry.Summary, entry.Outcome = s.condense(ctx, r, asOf)
			}
			metrics.Summaries.WithLabelValues(entry.Outcome).Inc()
			entries[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Report summarizes set and formats the numbered report.
func (s *Summarizer) Report(ctx context.Context, set *search.UniqueSet) (string, error) {
	entries, err := s.Summarize(ctx, set)
	if err != nil {
		return "", err
	}
	return FormatReport(entries), nil
}

type condenseReply struct {
	summary Summary
	err     error
}

func (s *Summarizer) condense(ctx context.Context, r search.Result, asOf time.Time) (string, string) {
	ctx, span := tracing.StartSpan(ctx, "summarize.condense", attribute.String("result.url", r.URL))
	defer span.End()

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text := util.TruncateRunes(r.RawContent, s.maxContent)
	start := time.Now()

	// Buffered so an abandoned call can still complete and exit.
	replies := make(chan condenseReply, 1)
	go func() {
		sum, err := s.condenser.Condense(cctx, text, asOf)
		replies <- condenseReply{summary: sum, err: err}
	}()

	var err error
	select {
	case reply := <-replies:
		if reply.err == nil {
			metrics.SummaryLatency.Observe(time.Since(start).Seconds())
			return reply.summary.Block(), metrics.OutcomeCondensed
		}
		err = reply.err
	case <-cctx.Done():
		err = cctx.Err()
	}

	span.RecordError(err)
	if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		s.logger.Warn("Summarization timed out, using original content",
			zap.String("url", r.URL),
			zap.Duration("timeout", s.timeout),
		)
		return r.Content, metrics.OutcomeTimeout
	}
	s.logger.Warn("Summarization failed, using original content",
		zap.String("url", r.URL),
		zap.Error(err),
	)
	return r.Content, metrics.OutcomeFailed
}
