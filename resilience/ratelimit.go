package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the token bucket rate limiter.
type RateLimiterConfig struct {
	// Capacity is the maximum number of tokens the bucket holds.
	// Bursts up to this size are admitted without waiting.
	// Default: 10
	Capacity int

	// RefillRate is the number of tokens added per second. This caps the
	// sustained outbound call rate.
	// Default: 1.0
	RefillRate float64

	// MaxSleep bounds each sleep inside Acquire so a waiting caller stays
	// responsive to context cancellation.
	// Default: 1 second
	MaxSleep time.Duration
}

// RateLimiter is a token bucket admission controller. Tokens refill lazily
// on access; the refill-and-debit sequence is one critical section under a
// single mutex, so concurrent acquirers queue on the lock.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	// Apply defaults
	if config.Capacity <= 0 {
		config.Capacity = 10
	}
	if config.RefillRate <= 0 {
		config.RefillRate = 1.0
	}
	if config.MaxSleep <= 0 {
		config.MaxSleep = time.Second
	}

	return &RateLimiter{
		config:     config,
		tokens:     float64(config.Capacity),
		lastRefill: time.Now(),
	}
}

// Acquire blocks until n tokens are available, debits them, and returns
// the time spent waiting. It returns ErrTokensExceedCapacity when n can
// never be satisfied, and the context error if ctx is cancelled while
// waiting. Sleeps are bounded by MaxSleep so cancellation is honored
// promptly.
func (rl *RateLimiter) Acquire(ctx context.Context, n int) (time.Duration, error) {
	if n > rl.config.Capacity {
		return 0, ErrTokensExceedCapacity
	}
	if n <= 0 {
		n = 1
	}

	start := time.Now()

	for {
		rl.mu.Lock()
		rl.refillLocked()
		if rl.tokens >= float64(n) {
			rl.tokens -= float64(n)
			rl.mu.Unlock()
			return time.Since(start), nil
		}
		deficit := float64(n) - rl.tokens
		rl.mu.Unlock()

		sleep := time.Duration(deficit / rl.config.RefillRate * float64(time.Second))
		if sleep > rl.config.MaxSleep {
			sleep = rl.config.MaxSleep
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return time.Since(start), ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow reports whether one token is immediately available, debiting it
// if so. It never blocks.
func (rl *RateLimiter) Allow() bool {
	return rl.AllowN(1)
}

// AllowN reports whether n tokens are immediately available, debiting
// them if so.
func (rl *RateLimiter) AllowN(n int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()

	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return true
	}
	return false
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// Capacity returns the bucket capacity.
func (rl *RateLimiter) Capacity() int {
	return rl.config.Capacity
}

// Reset refills the bucket to capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.config.Capacity)
	rl.lastRefill = time.Now()
}

// refillLocked adds tokens for the elapsed time since the last refill,
// capped at capacity. Callers must hold rl.mu.
func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	rl.lastRefill = now

	rl.tokens += elapsed.Seconds() * rl.config.RefillRate
	if rl.tokens > float64(rl.config.Capacity) {
		rl.tokens = float64(rl.config.Capacity)
	}
}
