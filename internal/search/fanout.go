package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FanOut issues every query of a request concurrently against one Searcher.
type FanOut struct {
	searcher    Searcher
	maxParallel int
	logger      *zap.Logger
}

// NewFanOut creates an executor. maxParallel <= 0 means one goroutine per query.
func NewFanOut(searcher Searcher, maxParallel int, logger *zap.Logger) *FanOut {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOut{searcher: searcher, maxParallel: maxParallel, logger: logger}
}

// Run returns one batch per query in input order. The first failing query
// cancels its siblings and its error is returned; no partial batches are
// returned alongside an error.
func (f *FanOut) Run(ctx context.Context, queries []string, params Params) ([]Batch, error) {
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}

	batches := make([]Batch, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	if f.maxParallel > 0 {
		g.SetLimit(f.maxParallel)
	}

	for i, q := range queries {
		g.Go(func() error {
			results, err := f.searcher.Search(gctx, q, params)
			if err != nil {
				return fmt.Errorf("search %q: %w", q, err)
			}
			for j := range results {
				results[j].Query = q
			}
			batches[i] = Batch{Query: q, Results: results}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		f.logger.Error("Search fan-out failed",
			zap.Int("queries", len(queries)),
			zap.Error(err),
		)
		return nil, err
	}
	return batches, nil
}
