package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Search metrics
	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_search_queries_total",
			Help: "Total number of search queries issued",
		},
		[]string{"provider", "topic", "status"},
	)

	SearchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_search_latency_seconds",
			Help:    "Search call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	UniqueResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_unique_results",
			Help:    "Number of unique results per pipeline run",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	DuplicateResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "research_duplicate_results_total",
			Help: "Total number of search results discarded as duplicates",
		},
	)

	// Summarization metrics
	Summaries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_summaries_total",
			Help: "Total number of summarized results by outcome",
		},
		[]string{"outcome"}, // condensed, raw, timeout, failed
	)

	SummaryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_summary_latency_seconds",
			Help:    "Condensation latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Token budget metrics
	BudgetClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_budget_classifications_total",
			Help: "Upstream failures classified by the token budget guard",
		},
		[]string{"provider", "exceeded"},
	)

	HistoryTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "research_history_truncations_total",
			Help: "Total number of message histories truncated for budget recovery",
		},
	)

	// Decision log metrics
	DecisionRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_decision_records_total",
			Help: "Decision log records by kind",
		},
		[]string{"kind"}, // thought, delegation, search
	)

	// Session metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "research_active_sessions",
			Help: "Number of open research sessions",
		},
	)

	// Pipeline metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_pipeline_runs_total",
			Help: "Total number of research pipeline runs",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_pipeline_duration_seconds",
			Help:    "Research pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
)

// Outcome labels for Summaries.
const (
	OutcomeCondensed = "condensed"
	OutcomeRaw       = "raw"
	OutcomeTimeout   = "timeout"
	OutcomeFailed    = "failed"
)
