package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/callguard/callguard/remote"
)

// Metrics records execution metrics for protected remote calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one protected call with duration and outcome.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordTokenWait records time spent blocked on the token bucket.
	RecordTokenWait(ctx context.Context, meta CallMeta, wait time.Duration)

	// RecordBreakerTransition records a circuit breaker state change.
	RecordBreakerTransition(ctx context.Context, target, from, to string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter           metric.Meter
	totalCount      metric.Int64Counter
	errorCount      metric.Int64Counter
	durationHist    metric.Float64Histogram
	tokenWaitHist   metric.Float64Histogram
	transitionCount metric.Int64Counter
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"remote.calls.total",
		metric.WithDescription("Total number of protected remote calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"remote.calls.errors",
		metric.WithDescription("Total number of failed remote calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"remote.call.duration_ms",
		metric.WithDescription("Remote call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	tokenWaitHist, err := meter.Float64Histogram(
		"remote.call.token_wait_ms",
		metric.WithDescription("Time spent waiting for a rate-limit token in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitionCount, err := meter.Int64Counter(
		"remote.breaker.transitions",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:           meter,
		totalCount:      totalCount,
		errorCount:      errorCount,
		durationHist:    durationHist,
		tokenWaitHist:   tokenWaitHist,
		transitionCount: transitionCount,
	}, nil
}

// RecordCall records metrics for one protected call.
func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("call.target", meta.Target),
		attribute.String("call.outcome", string(remote.OutcomeOf(err))),
	}
	if meta.Credential != "" {
		attrs = append(attrs, attribute.String("call.credential", meta.Credential))
	}

	opt := metric.WithAttributes(attrs...)

	// Always increment total counter
	m.totalCount.Add(ctx, 1, opt)

	// Increment error counter on failure
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	// Record duration in milliseconds
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// RecordTokenWait records time spent blocked on the token bucket.
func (m *metricsImpl) RecordTokenWait(ctx context.Context, meta CallMeta, wait time.Duration) {
	if wait <= 0 {
		return
	}
	m.tokenWaitHist.Record(ctx, float64(wait.Microseconds())/1000,
		metric.WithAttributes(attribute.String("call.target", meta.Target)))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, target, from, to string) {
	m.transitionCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.target", target),
		attribute.String("breaker.from", from),
		attribute.String("breaker.to", to),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NewNoopMetrics returns a Metrics that discards everything.
func NewNoopMetrics() Metrics { return &noopMetrics{} }

func (m *noopMetrics) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
}
func (m *noopMetrics) RecordTokenWait(ctx context.Context, meta CallMeta, wait time.Duration) {}
func (m *noopMetrics) RecordBreakerTransition(ctx context.Context, target, from, to string)  {}
