package health

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/callguard/callguard/remote"
)

func TestMonitor_RecordCountsOutcomes(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	m.Record(remote.OutcomeSuccess, 100*time.Millisecond)
	m.Record(remote.OutcomeSuccess, 200*time.Millisecond)
	m.Record(remote.OutcomeTransient, 50*time.Millisecond)
	m.Record(remote.OutcomeRateLimit, 0)
	m.Record(remote.OutcomeAuth, 0)
	m.Record(remote.OutcomeCircuitOpen, 0)

	snap := m.Snapshot()
	if snap.TotalCalls != 6 {
		t.Errorf("TotalCalls = %d, want 6", snap.TotalCalls)
	}
	if snap.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", snap.SuccessCount)
	}
	if snap.FailureCount != 4 {
		t.Errorf("FailureCount = %d, want 4", snap.FailureCount)
	}
	if snap.RateLimitErrors != 1 {
		t.Errorf("RateLimitErrors = %d, want 1", snap.RateLimitErrors)
	}
	if snap.ServerErrors != 1 {
		t.Errorf("ServerErrors = %d, want 1", snap.ServerErrors)
	}
	if snap.AuthErrors != 1 {
		t.Errorf("AuthErrors = %d, want 1", snap.AuthErrors)
	}
	if snap.CircuitRejections != 1 {
		t.Errorf("CircuitRejections = %d, want 1", snap.CircuitRejections)
	}
	if snap.ConsecutiveFailures != 4 {
		t.Errorf("ConsecutiveFailures = %d, want 4", snap.ConsecutiveFailures)
	}
}

func TestMonitor_HardBlockCountsAsRateLimitClass(t *testing.T) {
	m := NewMonitor(MonitorConfig{})
	m.Record(remote.OutcomeHardBlock, 0)

	if snap := m.Snapshot(); snap.RateLimitErrors != 1 {
		t.Errorf("RateLimitErrors = %d, want 1 after hard block", snap.RateLimitErrors)
	}
}

func TestMonitor_SuccessResetsConsecutiveFailures(t *testing.T) {
	m := NewMonitor(MonitorConfig{})
	m.Record(remote.OutcomeTransient, 0)
	m.Record(remote.OutcomeTransient, 0)
	m.Record(remote.OutcomeSuccess, 0)

	if snap := m.Snapshot(); snap.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
}

func TestMonitor_FailureRateAlertNeedsMinimumSample(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	// Four calls, all failures: 100% failure rate but below the sample floor.
	for i := 0; i < 4; i++ {
		m.Record(remote.OutcomeTransient, 0)
	}
	for _, alert := range m.CheckAlerts() {
		if strings.Contains(alert, "failure rate") {
			t.Errorf("failure rate alert fired below minimum sample: %q", alert)
		}
	}

	m.Record(remote.OutcomeTransient, 0)
	var found bool
	for _, alert := range m.CheckAlerts() {
		if strings.Contains(alert, "failure rate") {
			found = true
		}
	}
	if !found {
		t.Error("expected failure rate alert at 5 calls / 100% failures")
	}
}

func TestMonitor_ConsecutiveFailureAlert(t *testing.T) {
	m := NewMonitor(MonitorConfig{})
	m.Record(remote.OutcomeTransient, 0)
	m.Record(remote.OutcomeTransient, 0)
	if alerts := m.CheckAlerts(); len(alerts) != 0 {
		t.Errorf("alerts at 2 consecutive failures = %v, want none", alerts)
	}

	m.Record(remote.OutcomeTransient, 0)
	var found bool
	for _, alert := range m.CheckAlerts() {
		if strings.Contains(alert, "consecutive") {
			found = true
		}
	}
	if !found {
		t.Error("expected consecutive failure alert at 3")
	}
}

func TestMonitor_ShouldHaltOnRateLimitErrors(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	m.Record(remote.OutcomeRateLimit, 0)
	if halt, _ := m.ShouldHalt(); halt {
		t.Error("halted after a single rate-limit error")
	}

	m.Record(remote.OutcomeRateLimit, 0)
	halt, reason := m.ShouldHalt()
	if !halt {
		t.Fatal("expected halt after 2 rate-limit errors")
	}
	if !strings.Contains(reason, "rate-limit") {
		t.Errorf("reason = %q, want rate-limit mention", reason)
	}
}

func TestMonitor_ShouldHaltOnConsecutiveFailures(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	for i := 0; i < 4; i++ {
		m.Record(remote.OutcomeTransient, 0)
	}
	if halt, _ := m.ShouldHalt(); halt {
		t.Error("halted at 4 consecutive failures, threshold is 5")
	}

	m.Record(remote.OutcomeTransient, 0)
	halt, reason := m.ShouldHalt()
	if !halt {
		t.Fatal("expected halt at 5 consecutive failures")
	}
	if !strings.Contains(reason, "consecutive") {
		t.Errorf("reason = %q, want consecutive mention", reason)
	}
}

func TestMonitor_AlertFiresBeforeHaltOnConsecutiveFailures(t *testing.T) {
	m := NewMonitor(MonitorConfig{FailureRateMinCalls: 100})

	for i := 0; i < 3; i++ {
		m.Record(remote.OutcomeTransient, 0)
	}
	if len(m.CheckAlerts()) == 0 {
		t.Error("expected advisory alert at 3 consecutive failures")
	}
	if halt, _ := m.ShouldHalt(); halt {
		t.Error("advisory threshold must not halt the run")
	}
}

func TestMonitor_SnapshotDerivedRates(t *testing.T) {
	m := NewMonitor(MonitorConfig{})
	m.Record(remote.OutcomeSuccess, 100*time.Millisecond)
	m.Record(remote.OutcomeSuccess, 300*time.Millisecond)
	m.Record(remote.OutcomeTransient, 200*time.Millisecond)

	snap := m.Snapshot()
	if want := 2.0 / 3.0; snap.SuccessRate < want-0.001 || snap.SuccessRate > want+0.001 {
		t.Errorf("SuccessRate = %v, want %v", snap.SuccessRate, want)
	}
	if snap.AvgLatencyMS < 199 || snap.AvgLatencyMS > 201 {
		t.Errorf("AvgLatencyMS = %v, want ~200", snap.AvgLatencyMS)
	}
	if snap.CallsPerMinute <= 0 {
		t.Errorf("CallsPerMinute = %v, want > 0", snap.CallsPerMinute)
	}
	if snap.Runtime <= 0 {
		t.Errorf("Runtime = %v, want > 0", snap.Runtime)
	}
}

func TestMonitor_LatencyBufferBounded(t *testing.T) {
	m := NewMonitor(MonitorConfig{LatencyBufferSize: 4})

	// Old samples rotate out once the buffer wraps.
	for i := 0; i < 8; i++ {
		m.Record(remote.OutcomeSuccess, time.Second)
	}
	for i := 0; i < 4; i++ {
		m.Record(remote.OutcomeSuccess, 100*time.Millisecond)
	}

	snap := m.Snapshot()
	if snap.AvgLatencyMS < 99 || snap.AvgLatencyMS > 101 {
		t.Errorf("AvgLatencyMS = %v, want ~100 after buffer wrap", snap.AvgLatencyMS)
	}
}

func TestMonitor_CheckMapsThresholdsToStatus(t *testing.T) {
	tests := []struct {
		name   string
		record func(m *Monitor)
		want   Status
	}{
		{
			name:   "no calls is healthy",
			record: func(m *Monitor) {},
			want:   StatusHealthy,
		},
		{
			name: "successes are healthy",
			record: func(m *Monitor) {
				for i := 0; i < 10; i++ {
					m.Record(remote.OutcomeSuccess, time.Millisecond)
				}
			},
			want: StatusHealthy,
		},
		{
			name: "consecutive failure alert is degraded",
			record: func(m *Monitor) {
				for i := 0; i < 10; i++ {
					m.Record(remote.OutcomeSuccess, time.Millisecond)
				}
				for i := 0; i < 3; i++ {
					m.Record(remote.OutcomeTransient, time.Millisecond)
				}
			},
			want: StatusDegraded,
		},
		{
			name: "rate limit halt is unhealthy",
			record: func(m *Monitor) {
				m.Record(remote.OutcomeRateLimit, 0)
				m.Record(remote.OutcomeRateLimit, 0)
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(MonitorConfig{})
			tt.record(m)
			result := m.Check(context.Background())
			if result.Status != tt.want {
				t.Errorf("Check() status = %v, want %v (message %q)", result.Status, tt.want, result.Message)
			}
		})
	}
}

func TestMonitor_ConcurrentRecord(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(remote.OutcomeSuccess, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if snap := m.Snapshot(); snap.TotalCalls != 1000 {
		t.Errorf("TotalCalls = %d, want 1000", snap.TotalCalls)
	}
}
