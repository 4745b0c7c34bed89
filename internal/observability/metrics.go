package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RankingMetrics records ranking outcomes. It satisfies scoring.Recorder.
// All methods are safe on a nil receiver.
type RankingMetrics struct {
	Batches           metric.Int64Counter
	CandidatesScored  metric.Int64Counter
	CandidateFailures metric.Int64Counter
	RankDuration      metric.Float64Histogram
	FinalScore        metric.Float64Histogram

	CertReloadCount metric.Int64Counter
}

// NewRankingMetrics creates every ranking instrument on meter
func NewRankingMetrics(meter metric.Meter) (*RankingMetrics, error) {
	m := &RankingMetrics{}
	var err error

	m.Batches, err = meter.Int64Counter(
		"candidaterank_batches_total",
		metric.WithDescription("Ranking batches by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batches metric: %w", err)
	}

	m.CandidatesScored, err = meter.Int64Counter(
		"candidaterank_candidates_scored_total",
		metric.WithDescription("Candidates that received a final score"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidates scored metric: %w", err)
	}

	m.CandidateFailures, err = meter.Int64Counter(
		"candidaterank_candidate_failures_total",
		metric.WithDescription("Candidates excluded from ranking, by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate failures metric: %w", err)
	}

	m.RankDuration, err = meter.Float64Histogram(
		"candidaterank_rank_duration_seconds",
		metric.WithDescription("Time spent ranking one batch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rank duration metric: %w", err)
	}

	m.FinalScore, err = meter.Float64Histogram(
		"candidaterank_final_score",
		metric.WithDescription("Distribution of final candidate scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create final score metric: %w", err)
	}

	m.CertReloadCount, err = meter.Int64Counter(
		"candidaterank_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}

	return m, nil
}

// RecordBatch counts one batch and its duration
func (m *RankingMetrics) RecordBatch(ctx context.Context, outcome string, _ int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.Batches.Add(ctx, 1, attrs)
	m.RankDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCandidate counts one scored candidate
func (m *RankingMetrics) RecordCandidate(ctx context.Context, finalScore float64) {
	if m == nil {
		return
	}
	m.CandidatesScored.Add(ctx, 1)
	m.FinalScore.Record(ctx, finalScore)
}

// RecordFailure counts one excluded candidate
func (m *RankingMetrics) RecordFailure(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.CandidateFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordCertReload counts a certificate reload attempt
func (m *RankingMetrics) RecordCertReload(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
