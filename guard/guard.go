package guard

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/callguard/callguard/audit"
	"github.com/callguard/callguard/health"
	"github.com/callguard/callguard/observe"
	"github.com/callguard/callguard/remote"
	"github.com/callguard/callguard/resilience"
)

// Config configures the guard.
type Config struct {
	// Limiter configures the token bucket every call must pass first.
	Limiter resilience.RateLimiterConfig

	// Retry configures the backoff retrier wrapped around each call.
	Retry resilience.RetryConfig

	// Breaker configures the per-target circuit breakers. OnStateChange
	// is reserved for the guard's own audit wiring.
	Breaker resilience.CircuitBreakerConfig

	// Monitor configures the health monitor thresholds.
	Monitor health.MonitorConfig

	// Audit receives one record per call. When nil, records are
	// discarded.
	Audit *audit.Logger

	// Observer supplies tracing, metrics, and logging. When nil, all
	// telemetry is a no-op.
	Observer observe.Observer
}

// Result is the terminal outcome of one protected call.
type Result struct {
	// Outcome is the outcome code recorded in the audit trail.
	Outcome remote.Outcome

	// Latency is the time spent in the call path, excluding the token
	// wait.
	Latency time.Duration

	// TokenWait is the time spent blocked on the rate limiter.
	TokenWait time.Duration

	// Attempts is how many times the call function was invoked.
	Attempts int

	// Err is the terminal error, nil on success.
	Err error
}

// Guard coordinates rate limiting, retry, circuit breaking, auditing,
// and health monitoring for calls to a remote service. One Guard owns
// one token bucket, one breaker per target, one audit logger, and one
// health monitor.
type Guard struct {
	config  Config
	limiter *resilience.RateLimiter
	retry   *resilience.Retry
	monitor *health.Monitor
	auditor *audit.Logger
	metrics observe.Metrics
	mw      *observe.Middleware
	logger  observe.Logger
	checks  *health.CheckerSet

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// New creates a guard from the configuration.
func New(config Config) (*Guard, error) {
	g := &Guard{
		config:   config,
		limiter:  resilience.NewRateLimiter(config.Limiter),
		retry:    resilience.NewRetry(config.Retry),
		monitor:  health.NewMonitor(config.Monitor),
		auditor:  config.Audit,
		checks:   health.NewCheckerSet(),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}

	if g.auditor == nil {
		g.auditor = audit.NewLogger(io.Discard)
	}

	if config.Observer != nil {
		metrics, err := observe.NewMetrics(config.Observer.Meter())
		if err != nil {
			return nil, err
		}
		g.metrics = metrics
		g.logger = config.Observer.Logger()
		g.mw = observe.NewMiddleware(observe.NewTracer(config.Observer.Tracer()), metrics, g.logger)
	} else {
		g.metrics = observe.NewNoopMetrics()
		g.logger = observe.NoopLogger()
		g.mw = observe.NewMiddleware(observe.NewNoopTracer(), g.metrics, g.logger)
	}

	g.checks.Register("calls", g.monitor)

	return g, nil
}

// Execute runs fn protected by the full stack: token bucket, per-target
// circuit breaker, backoff retry. One call record and one monitor
// record are written no matter how the call ends, including breaker
// short-circuits; rate-limit responses append a rate_limit event too.
func (g *Guard) Execute(ctx context.Context, target string, fn func(context.Context) error) Result {
	waited, err := g.limiter.Acquire(ctx, 1)
	if err != nil {
		// The call never started; leave the monitor untouched but keep
		// the audit trail complete.
		g.appendAudit(ctx, audit.NewError(target, "token acquire: "+err.Error()))
		return Result{Outcome: remote.OutcomeOf(err), TokenWait: waited, Err: err}
	}

	meta := observe.CallMeta{Target: target}
	g.metrics.RecordTokenWait(ctx, meta, waited)
	if waited > 0 {
		g.logger.Debug(ctx, "waited for rate-limit token",
			observe.Field{Key: "target", Value: target},
			observe.Field{Key: "wait_ms", Value: float64(waited.Microseconds()) / 1000},
		)
	}

	breaker := g.breakerFor(target)

	var attempts atomic.Int32
	start := time.Now()

	callErr := g.mw.Wrap(func(ctx context.Context, _ observe.CallMeta) error {
		return breaker.Execute(ctx, func(ctx context.Context) error {
			return g.retry.Execute(ctx, func(ctx context.Context) error {
				attempts.Add(1)
				return fn(ctx)
			})
		})
	})(ctx, meta)

	latency := time.Since(start)
	outcome := outcomeOf(callErr)

	record := audit.NewCall(target, outcome, latency, int(attempts.Load()), breaker.State().String())
	g.appendAudit(ctx, record)
	if remote.IsRateLimit(callErr) {
		g.appendAudit(ctx, audit.NewRateLimit(target, callErr.Error()))
	}
	g.monitor.Record(outcome, latency)

	return Result{
		Outcome:   outcome,
		Latency:   latency,
		TokenWait: waited,
		Attempts:  int(attempts.Load()),
		Err:       callErr,
	}
}

// breakerFor returns the breaker for a target, creating it lazily. State
// is shared across workers calling the same target.
func (g *Guard) breakerFor(target string) *resilience.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[target]; ok {
		return cb
	}

	config := g.config.Breaker
	config.OnStateChange = func(from, to resilience.State) {
		// Transitions outlive the call that caused them; do not tie
		// their telemetry to that call's context.
		ctx := context.Background()
		g.appendAudit(ctx, audit.NewBreakerTransition(target, from.String(), to.String()))
		g.metrics.RecordBreakerTransition(ctx, target, from.String(), to.String())
		g.logger.Warn(ctx, "circuit breaker transition",
			observe.Field{Key: "target", Value: target},
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
	}

	cb := resilience.NewCircuitBreaker(config)
	g.breakers[target] = cb
	g.checks.Register("breaker:"+target, breakerChecker{target: target, cb: cb})

	return cb
}

// breakerChecker exposes a breaker's state on the health surface.
type breakerChecker struct {
	target string
	cb     *resilience.CircuitBreaker
}

func (c breakerChecker) Name() string { return "breaker:" + c.target }

func (c breakerChecker) Check(ctx context.Context) health.Result {
	metrics := c.cb.Metrics()
	details := map[string]any{
		"state":                metrics.State.String(),
		"consecutive_failures": metrics.ConsecutiveFailures,
	}

	switch metrics.State {
	case resilience.StateOpen:
		return health.Unhealthy("circuit open for "+c.target, nil).WithDetails(details)
	case resilience.StateHalfOpen:
		return health.Degraded("circuit probing recovery for " + c.target).WithDetails(details)
	default:
		return health.Healthy("circuit closed for " + c.target).WithDetails(details)
	}
}

func (g *Guard) appendAudit(ctx context.Context, record audit.Record) {
	if err := g.auditor.Append(record); err != nil {
		g.logger.Error(ctx, "audit append failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

// outcomeOf distinguishes a breaker short-circuit from a genuine remote
// failure.
func outcomeOf(err error) remote.Outcome {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return remote.OutcomeCircuitOpen
	}
	return remote.OutcomeOf(err)
}

// ShouldHalt reports whether a bulk run driving this guard must stop.
// It satisfies batch.Halter.
func (g *Guard) ShouldHalt() (bool, string) {
	return g.monitor.ShouldHalt()
}

// CheckAlerts returns the monitor's advisory alerts.
func (g *Guard) CheckAlerts() []string {
	return g.monitor.CheckAlerts()
}

// Monitor returns the guard's health monitor.
func (g *Guard) Monitor() *health.Monitor {
	return g.monitor
}

// Tokens returns the current token bucket level.
func (g *Guard) Tokens() float64 {
	return g.limiter.Tokens()
}

// RegisterChecker adds an external checker (for example a quota tracker)
// to the guard's health surface.
func (g *Guard) RegisterChecker(name string, checker health.Checker) {
	g.checks.Register(name, checker)
}

// Health runs all registered checkers and returns the results with the
// combined status.
func (g *Guard) Health(ctx context.Context) (health.Status, map[string]health.Result) {
	results := g.checks.CheckAll(ctx)
	return g.checks.OverallStatus(results), results
}

// Snapshot is a point-in-time view across the guard's components.
type Snapshot struct {
	Health   health.Snapshot
	Tokens   float64
	Breakers map[string]resilience.CircuitBreakerMetrics
}

// Snapshot returns the current state of the monitor, the token bucket,
// and every breaker, suitable for printing at run end.
func (g *Guard) Snapshot() Snapshot {
	g.mu.Lock()
	breakers := make(map[string]resilience.CircuitBreakerMetrics, len(g.breakers))
	for target, cb := range g.breakers {
		breakers[target] = cb.Metrics()
	}
	g.mu.Unlock()

	return Snapshot{
		Health:   g.monitor.Snapshot(),
		Tokens:   g.limiter.Tokens(),
		Breakers: breakers,
	}
}

// Close closes the audit logger. The guard must not be used afterwards.
func (g *Guard) Close() error {
	return g.auditor.Close()
}
