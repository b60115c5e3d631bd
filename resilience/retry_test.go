package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/callguard/callguard/remote"
)

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", r.config.MaxAttempts)
	}
	if r.config.BaseDelay != 2*time.Second {
		t.Errorf("BaseDelay = %v, want 2s", r.config.BaseDelay)
	}
	if r.config.MaxDelay != 60*time.Second {
		t.Errorf("MaxDelay = %v, want 60s", r.config.MaxDelay)
	}
	if r.config.RetryIf == nil {
		t.Error("RetryIf should default to remote.IsRetryable")
	}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestRetry_SuccessAfterFailures(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond})

	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return remote.Transient(503, "unavailable")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond})

	testErr := remote.Transient(500, "boom")
	calls := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return testErr
	})

	if calls != 3 {
		t.Errorf("op called %d times, want exactly 3", calls)
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("Execute() error = %v, want ErrRetriesExhausted", err)
	}
	if !errors.Is(err, testErr) {
		t.Error("exhausted error should wrap the last attempt's error")
	}
}

func TestRetry_NonRetryablePropagatesImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"rate limit", remote.RateLimited(429, "throttled")},
		{"hard block", remote.HardBlocked(403, "banned")},
		{"auth", remote.AuthFailed(401, "bad key")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetry(RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond})

			calls := 0
			err := r.Execute(context.Background(), func(ctx context.Context) error {
				calls++
				return tt.err
			})

			if calls != 1 {
				t.Errorf("op called %d times, want 1", calls)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Execute() error = %v, want %v unwrapped", err, tt.err)
			}
			if errors.Is(err, ErrRetriesExhausted) {
				t.Error("non-retryable failures must not be tagged exhausted")
			}
		})
	}
}

func TestRetry_DelaysGrowAndStayBounded(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    3 * time.Millisecond,
		JitterOff:   true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return remote.Transient(500, "boom")
	})

	if len(delays) != 3 {
		t.Fatalf("got %d delays, want 3", len(delays))
	}
	for i := 1; i < len(delays); i++ {
		if delays[i] < delays[i-1] {
			t.Errorf("delay %d (%v) < delay %d (%v), want non-decreasing", i, delays[i], i-1, delays[i-1])
		}
	}
	for i, d := range delays {
		if d > 3*time.Millisecond {
			t.Errorf("delay %d = %v, want <= MaxDelay", i, d)
		}
	}
	// 1ms, 2ms, then capped at 3ms.
	if delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond || delays[2] != 3*time.Millisecond {
		t.Errorf("delays = %v, want [1ms 2ms 3ms]", delays)
	}
}

func TestRetry_JitterWithinTenPercent(t *testing.T) {
	r := NewRetry(RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second})

	for i := 0; i < 50; i++ {
		d := r.delayFor(0)
		if d < 100*time.Millisecond || d > 110*time.Millisecond {
			t.Fatalf("delayFor(0) = %v, want within [100ms, 110ms]", d)
		}
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3, BaseDelay: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	calls := 0
	err := r.Execute(ctx, func(ctx context.Context) error {
		calls++
		return remote.Transient(500, "boom")
	})

	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}
