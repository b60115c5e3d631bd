package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/callguard/callguard/remote"
)

// RetryConfig configures the backoff retrier.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	// Default: 3
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Each subsequent delay
	// doubles: min(BaseDelay * 2^attempt, MaxDelay).
	// Default: 2 seconds
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 60 seconds
	MaxDelay time.Duration

	// Jitter adds a uniform 0-10% of the delay to desynchronize retries.
	// Default: true (set JitterOff to disable)
	JitterOff bool

	// RetryIf determines whether an error is worth another attempt.
	// Transient and unclassified failures retry; rate-limit, hard-block,
	// and auth failures propagate at once. Default: remote.IsRetryable
	RetryIf func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry wraps one logical call with bounded, jittered retry on transient
// failure.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retrier.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 2 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 60 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = remote.IsRetryable
	}

	return &Retry{config: config}
}

// Execute runs the operation, retrying classified-retryable failures with
// exponential backoff. Non-retryable failures propagate immediately
// without consuming remaining attempts. When attempts run out, the last
// error is returned wrapped with ErrRetriesExhausted.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}

		if attempt == r.config.MaxAttempts-1 {
			break
		}

		delay := r.delayFor(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.config.MaxAttempts, lastErr)
}

// delayFor computes the backoff delay for a zero-based attempt index.
func (r *Retry) delayFor(attempt int) time.Duration {
	delay := time.Duration(float64(r.config.BaseDelay) * math.Pow(2, float64(attempt)))
	if delay > r.config.MaxDelay || delay <= 0 {
		delay = r.config.MaxDelay
	}

	if !r.config.JitterOff && delay > 0 {
		// Uniform 0-10% of the delay.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay)/10 + 1))
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
