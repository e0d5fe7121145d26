package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records workflow engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSubmission records a generation job submission.
	RecordSubmission(ctx context.Context, kind string, err error)

	// RecordPoll records one status poll with its duration and error status.
	RecordPoll(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordRetry records a transient-error retry within a polling loop.
	RecordRetry(ctx context.Context, nodeID string)

	// RecordGeneration records a generation reaching a terminal state.
	RecordGeneration(ctx context.Context, kind string, success bool, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	submissions metric.Int64Counter
	polls       metric.Int64Counter
	pollLatency metric.Float64Histogram
	pollErrors  metric.Int64Counter
	retries     metric.Int64Counter
	generations metric.Int64Counter
	genLatency  metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("mediaflow")

	submissions, err := meter.Int64Counter("mediaflow.generation.submissions",
		metric.WithDescription("Number of generation jobs submitted"),
	)
	if err != nil {
		return nil, err
	}

	polls, err := meter.Int64Counter("mediaflow.poll.requests",
		metric.WithDescription("Number of job status polls"),
	)
	if err != nil {
		return nil, err
	}

	pollLatency, err := meter.Float64Histogram("mediaflow.poll.latency_ms",
		metric.WithDescription("Status poll latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	pollErrors, err := meter.Int64Counter("mediaflow.poll.errors",
		metric.WithDescription("Number of failed status polls"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("mediaflow.poll.retries",
		metric.WithDescription("Number of transient-error retries"),
	)
	if err != nil {
		return nil, err
	}

	generations, err := meter.Int64Counter("mediaflow.generation.completions",
		metric.WithDescription("Number of generations reaching a terminal state"),
	)
	if err != nil {
		return nil, err
	}

	genLatency, err := meter.Float64Histogram("mediaflow.generation.latency_ms",
		metric.WithDescription("Submit-to-terminal generation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		submissions: submissions,
		polls:       polls,
		pollLatency: pollLatency,
		pollErrors:  pollErrors,
		retries:     retries,
		generations: generations,
		genLatency:  genLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSubmission records a generation job submission.
func (m *otelMetrics) RecordSubmission(ctx context.Context, kind string, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.Bool("success", err == nil),
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPoll records one status poll.
func (m *otelMetrics) RecordPoll(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("node_id", nodeID),
	}
	m.polls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.pollLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.pollErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRetry records a transient-error retry.
func (m *otelMetrics) RecordRetry(ctx context.Context, nodeID string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", nodeID),
	))
}

// RecordGeneration records a generation reaching a terminal state.
func (m *otelMetrics) RecordGeneration(ctx context.Context, kind string, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.Bool("success", success),
	}
	m.generations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.genLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}
