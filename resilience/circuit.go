package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/callguard/callguard/remote"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through normally.
	StateClosed State = iota
	// StateOpen means calls are rejected without reaching the remote service.
	StateOpen
	// StateHalfOpen means a bounded number of probe calls test recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens. Kept deliberately small so the breaker trips before a
	// burst of soft rate-limit responses can escalate into a hard block.
	// Default: 3
	FailureThreshold int

	// CooldownTimeout is how long the circuit stays open before allowing
	// half-open probes.
	// Default: 5 minutes
	CooldownTimeout time.Duration

	// HalfOpenMaxCalls is both the probe budget in half-open state and the
	// number of consecutive probe successes required to close the circuit.
	// Default: 3
	HalfOpenMaxCalls int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// IsFailure determines if an error counts toward the failure threshold.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// TripNow identifies errors that open the circuit immediately,
	// bypassing the threshold. Retrying an address-level block cannot
	// succeed. Default: remote.IsHardBlock
	TripNow func(err error) bool
}

// CircuitBreaker fails fast when the remote service looks unhealthy.
// One instance protects one target; state is shared across workers and
// guarded by a short critical section containing no I/O.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu                sync.Mutex
	state             State
	failures          int
	halfOpenSuccesses int
	halfOpenProbes    int
	lastFailure       time.Time
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.CooldownTimeout <= 0 {
		config.CooldownTimeout = 5 * time.Minute
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 3
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.TripNow == nil {
		config.TripNow = remote.IsHardBlock
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker. When the
// circuit is open it returns ErrCircuitOpen without invoking op.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterCall(err)
	return err
}

// State returns the current circuit state, applying the cooldown
// transition if it is due.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset returns the circuit breaker to the closed state and clears all
// counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenSuccesses = 0
	cb.halfOpenProbes = 0

	if oldState != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, StateClosed)
	}
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenProbes >= cb.config.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		cb.halfOpenProbes++
	}

	return nil
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	isFailure := err != nil && cb.config.IsFailure(err)

	if err != nil && cb.config.TripNow(err) {
		// Hard block: open immediately regardless of the counter.
		cb.failures++
		cb.lastFailure = time.Now()
		cb.setStateLocked(StateOpen)
	} else {
		switch cb.state {
		case StateClosed:
			if isFailure {
				cb.failures++
				cb.lastFailure = time.Now()
				if cb.failures >= cb.config.FailureThreshold {
					cb.setStateLocked(StateOpen)
				}
			} else {
				cb.failures = 0
			}

		case StateHalfOpen:
			if isFailure {
				// A single failed probe reverts to open and restarts the
				// cooldown clock.
				cb.lastFailure = time.Now()
				cb.setStateLocked(StateOpen)
			} else {
				cb.halfOpenSuccesses++
				if cb.halfOpenSuccesses >= cb.config.HalfOpenMaxCalls {
					cb.setStateLocked(StateClosed)
					cb.failures = 0
				}
			}
		}
	}

	if oldState != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, cb.state)
	}
}

// currentStateLocked applies the open-to-half-open transition once the
// cooldown has elapsed. Callers must hold cb.mu.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.config.CooldownTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenProbes = 0
		cb.halfOpenSuccesses = 0
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	cb.state = state
	if state == StateHalfOpen || state == StateOpen {
		cb.halfOpenProbes = 0
		cb.halfOpenSuccesses = 0
	}
}

// Metrics returns current circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:               cb.currentStateLocked(),
		ConsecutiveFailures: cb.failures,
		HalfOpenSuccesses:   cb.halfOpenSuccesses,
		LastFailure:         cb.lastFailure,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State               State
	ConsecutiveFailures int
	HalfOpenSuccesses   int
	LastFailure         time.Time
}
