package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric names.
const (
	MetricInvocations = "process.invocations"
	MetricDuration    = "process.duration"
	MetricActive      = "process.active"
)

// InvocationMetrics holds the instruments recorded for every child process.
// A nil *InvocationMetrics records nothing.
type InvocationMetrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
	active      metric.Int64UpDownCounter
}

// NewInvocationMetrics creates the instruments on meter.
func NewInvocationMetrics(meter metric.Meter) (*InvocationMetrics, error) {
	invocations, err := meter.Int64Counter(MetricInvocations,
		metric.WithDescription("Completed child process invocations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricInvocations, err)
	}

	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Wall time of child process invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDuration, err)
	}

	active, err := meter.Int64UpDownCounter(MetricActive,
		metric.WithDescription("Child processes currently running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricActive, err)
	}

	return &InvocationMetrics{
		invocations: invocations,
		duration:    duration,
		active:      active,
	}, nil
}

var (
	defaultMetrics     *InvocationMetrics
	defaultMetricsOnce sync.Once
)

// DefaultInvocationMetrics returns instruments bound to the global meter
// provider. They follow a provider installed later by InitMeter.
func DefaultInvocationMetrics() *InvocationMetrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewInvocationMetrics(Meter())
		if err != nil {
			m, _ = NewInvocationMetrics(noop.NewMeterProvider().Meter(instrumentationName))
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordStart increments the running count.
func (m *InvocationMetrics) RecordStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1)
}

// RecordEnd decrements the running count and records a finished invocation.
func (m *InvocationMetrics) RecordEnd(ctx context.Context, executable, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
	m.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrExecutable, executable),
		attribute.String(AttrOutcome, outcome),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrExecutable, executable),
	))
}

// RecordFailedSpawn counts an invocation that never produced a process.
func (m *InvocationMetrics) RecordFailedSpawn(ctx context.Context, executable, outcome string) {
	if m == nil {
		return
	}
	m.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrExecutable, executable),
		attribute.String(AttrOutcome, outcome),
	))
}
