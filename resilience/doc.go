// Package resilience provides the protection primitives wrapped around
// calls to a rate-constrained remote API.
//
// # Patterns
//
//   - Rate Limiter: token bucket admission control. Every outbound call
//     acquires a token first; acquisition blocks until the bucket refills,
//     so the bucket is the single serialization point for aggregate call
//     rate.
//
//   - Retry: bounded exponential backoff with jitter for transient
//     failures. Rate-limit and hard-block responses are never retried.
//
//   - Circuit Breaker: trips after a small number of consecutive failures
//     and fails fast until a cooldown elapses, then probes cautiously
//     before fully closing. Hard blocks trip it immediately.
//
//   - Bulkhead: caps concurrent workers so a bulk run cannot fan out past
//     what a quota-constrained account tolerates.
//
// # Usage
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    Capacity:   5,
//	    RefillRate: 0.33, // one call every ~3s sustained
//	})
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 3,
//	    CooldownTimeout:  5 * time.Minute,
//	    HalfOpenMaxCalls: 3,
//	})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: 3,
//	    BaseDelay:   2 * time.Second,
//	    MaxDelay:    60 * time.Second,
//	})
//
//	waited, err := rl.Acquire(ctx, 1)
//	if err == nil {
//	    err = cb.Execute(ctx, func(ctx context.Context) error {
//	        return retry.Execute(ctx, callRemote)
//	    })
//	}
//
// The guard package composes these with audit logging and health
// monitoring; most callers should use guard.Guard instead of wiring the
// primitives by hand.
package resilience
