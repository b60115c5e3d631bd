package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/callguard/callguard/remote"
)

// MonitorConfig configures alert and halt thresholds.
type MonitorConfig struct {
	// FailureRateThreshold is the overall failure ratio that raises an
	// advisory alert, checked once FailureRateMinCalls calls have been
	// recorded. Default: 0.20
	FailureRateThreshold float64

	// FailureRateMinCalls is the minimum sample before the failure-rate
	// alert applies. Default: 5
	FailureRateMinCalls int

	// ConsecutiveFailureAlert raises an advisory alert at this many
	// failures in a row. Default: 3
	ConsecutiveFailureAlert int

	// RateLimitHalt halts the run at this many rate-limit-class errors.
	// Repeated throttling is the primary signal that continuing risks a
	// hard address-level block. Default: 2
	RateLimitHalt int

	// ConsecutiveFailureHalt halts the run at this many failures in a
	// row. Default: 5
	ConsecutiveFailureHalt int

	// LatencyBufferSize bounds the rolling latency buffer. Default: 256
	LatencyBufferSize int
}

// Snapshot is a point-in-time copy of the monitor's counters plus
// derived ratios.
type Snapshot struct {
	TotalCalls          int64         `json:"total_calls"`
	SuccessCount        int64         `json:"success_count"`
	FailureCount        int64         `json:"failure_count"`
	RateLimitErrors     int64         `json:"rate_limit_errors"`
	ServerErrors        int64         `json:"server_errors"`
	AuthErrors          int64         `json:"auth_errors"`
	CircuitRejections   int64         `json:"circuit_rejections"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	SuccessRate         float64       `json:"success_rate"`
	CallsPerMinute      float64       `json:"calls_per_minute"`
	AvgLatencyMS        float64       `json:"avg_latency_ms"`
	Runtime             time.Duration `json:"runtime"`
}

// Monitor accumulates per-call outcomes for one run. Counters reset only
// at construction; all methods are safe for concurrent use.
type Monitor struct {
	config MonitorConfig

	mu                  sync.Mutex
	totalCalls          int64
	successCount        int64
	failureCount        int64
	rateLimitErrors     int64
	serverErrors        int64
	authErrors          int64
	circuitRejections   int64
	consecutiveFailures int
	latencies           []float64 // ring buffer, milliseconds
	latencyNext         int
	latencyCount        int
	start               time.Time
}

// NewMonitor creates a monitor with zeroed counters.
func NewMonitor(config MonitorConfig) *Monitor {
	// Apply defaults
	if config.FailureRateThreshold <= 0 {
		config.FailureRateThreshold = 0.20
	}
	if config.FailureRateMinCalls <= 0 {
		config.FailureRateMinCalls = 5
	}
	if config.ConsecutiveFailureAlert <= 0 {
		config.ConsecutiveFailureAlert = 3
	}
	if config.RateLimitHalt <= 0 {
		config.RateLimitHalt = 2
	}
	if config.ConsecutiveFailureHalt <= 0 {
		config.ConsecutiveFailureHalt = 5
	}
	if config.LatencyBufferSize <= 0 {
		config.LatencyBufferSize = 256
	}

	return &Monitor{
		config:    config,
		latencies: make([]float64, config.LatencyBufferSize),
		start:     time.Now(),
	}
}

// Record updates the counters for one call outcome.
func (m *Monitor) Record(outcome remote.Outcome, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCalls++

	if latency > 0 {
		m.latencies[m.latencyNext] = float64(latency.Microseconds()) / 1000
		m.latencyNext = (m.latencyNext + 1) % len(m.latencies)
		if m.latencyCount < len(m.latencies) {
			m.latencyCount++
		}
	}

	if outcome == remote.OutcomeSuccess {
		m.successCount++
		m.consecutiveFailures = 0
		return
	}

	m.failureCount++
	m.consecutiveFailures++

	switch outcome {
	case remote.OutcomeRateLimit, remote.OutcomeHardBlock:
		m.rateLimitErrors++
	case remote.OutcomeAuth:
		m.authErrors++
	case remote.OutcomeTransient:
		m.serverErrors++
	case remote.OutcomeCircuitOpen:
		m.circuitRejections++
	}
}

// CheckAlerts returns advisory alert reasons. An empty slice means no
// threshold is currently exceeded.
func (m *Monitor) CheckAlerts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var alerts []string

	if m.totalCalls >= int64(m.config.FailureRateMinCalls) {
		rate := float64(m.failureCount) / float64(m.totalCalls)
		if rate > m.config.FailureRateThreshold {
			alerts = append(alerts, fmt.Sprintf(
				"failure rate %.1f%% above %.0f%% threshold",
				rate*100, m.config.FailureRateThreshold*100))
		}
	}

	if m.consecutiveFailures >= m.config.ConsecutiveFailureAlert {
		alerts = append(alerts, fmt.Sprintf(
			"%d consecutive failures (threshold %d)",
			m.consecutiveFailures, m.config.ConsecutiveFailureAlert))
	}

	if m.rateLimitErrors >= int64(m.config.RateLimitHalt) {
		alerts = append(alerts, fmt.Sprintf(
			"%d rate-limit errors (threshold %d)",
			m.rateLimitErrors, m.config.RateLimitHalt))
	}

	return alerts
}

// ShouldHalt reports whether the run must stop now, with the reason.
// Halt conditions are deliberately narrower than advisory alerts.
func (m *Monitor) ShouldHalt() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rateLimitErrors >= int64(m.config.RateLimitHalt) {
		return true, fmt.Sprintf("%d rate-limit errors, stopping to prevent a hard block", m.rateLimitErrors)
	}
	if m.consecutiveFailures >= m.config.ConsecutiveFailureHalt {
		return true, fmt.Sprintf("%d consecutive failures", m.consecutiveFailures)
	}
	return false, ""
}

// Snapshot returns a copy of the counters with derived ratios.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	runtime := time.Since(m.start)
	snap := Snapshot{
		TotalCalls:          m.totalCalls,
		SuccessCount:        m.successCount,
		FailureCount:        m.failureCount,
		RateLimitErrors:     m.rateLimitErrors,
		ServerErrors:        m.serverErrors,
		AuthErrors:          m.authErrors,
		CircuitRejections:   m.circuitRejections,
		ConsecutiveFailures: m.consecutiveFailures,
		Runtime:             runtime,
	}

	if m.totalCalls > 0 {
		snap.SuccessRate = float64(m.successCount) / float64(m.totalCalls)
	}
	if runtime > 0 {
		snap.CallsPerMinute = float64(m.totalCalls) / runtime.Minutes()
	}
	if m.latencyCount > 0 {
		var sum float64
		for i := 0; i < m.latencyCount; i++ {
			sum += m.latencies[i]
		}
		snap.AvgLatencyMS = sum / float64(m.latencyCount)
	}

	return snap
}

// Name implements Checker.
func (m *Monitor) Name() string { return "calls" }

// Check implements Checker: halting conditions map to unhealthy,
// advisory alerts to degraded.
func (m *Monitor) Check(ctx context.Context) Result {
	if halt, reason := m.ShouldHalt(); halt {
		return Unhealthy(reason, ErrCheckFailed).WithDetails(m.details())
	}
	if alerts := m.CheckAlerts(); len(alerts) > 0 {
		return Degraded(alerts[0]).WithDetails(m.details())
	}

	snap := m.Snapshot()
	return Healthy(fmt.Sprintf("%d calls, %.1f%% success", snap.TotalCalls, snap.SuccessRate*100)).
		WithDetails(m.details())
}

func (m *Monitor) details() map[string]any {
	snap := m.Snapshot()
	return map[string]any{
		"total_calls":          snap.TotalCalls,
		"success_count":        snap.SuccessCount,
		"failure_count":        snap.FailureCount,
		"rate_limit_errors":    snap.RateLimitErrors,
		"consecutive_failures": snap.ConsecutiveFailures,
		"calls_per_minute":     snap.CallsPerMinute,
		"avg_latency_ms":       snap.AvgLatencyMS,
	}
}
