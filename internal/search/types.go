// Package search issues web-search queries concurrently and merges the
// returned batches into an ordered set of unique results.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Topic narrows the search provider's index.
type Topic string

const (
	TopicGeneral Topic = "general"
	TopicNews    Topic = "news"
	TopicFinance Topic = "finance"
)

var (
	ErrNoQueries          = errors.New("no search queries provided")
	ErrInvalidTopic       = errors.New("invalid search topic")
	ErrMaxResultsExceeded = errors.New("max results exceeds configured cap")
)

// ParseTopic accepts general, news or finance in any case.
func ParseTopic(s string) (Topic, error) {
	switch t := Topic(strings.ToLower(strings.TrimSpace(s))); t {
	case TopicGeneral, TopicNews, TopicFinance:
		return t, nil
	case "":
		return TopicGeneral, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTopic, s)
}

// Params are shared by every query of one fan-out. They are copied by value
// into each call and never mutated.
type Params struct {
	MaxResults        int
	Topic             Topic
	IncludeRawContent bool
}

// Validate checks the result cap and topic. A maxCap of zero disables the cap check.
func (p Params) Validate(maxCap int) error {
	if p.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive, got %d", p.MaxResults)
	}
	if maxCap > 0 && p.MaxResults > maxCap {
		return fmt.Errorf("%w: %d > %d", ErrMaxResultsExceeded, p.MaxResults, maxCap)
	}
	if _, err := ParseTopic(string(p.Topic)); err != nil {
		return err
	}
	return nil
}

// Result is one search hit. URL is the identity used for deduplication.
type Result struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content,omitempty"`
	// Query is the query that produced the hit.
	Query string `json:"query"`
}

// Batch holds the results of a single query.
type Batch struct {
	Query   string
	Results []Result
}

// Searcher is the upstream search capability.
type Searcher interface {
	Search(ctx context.Context, query string, params Params) ([]Result, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, params Params) ([]Result, error)

func (f SearcherFunc) Search(ctx context.Context, query string, params Params) ([]Result, error) {
	return f(ctx, query, params)
}
