package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the health of a component.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component is functioning but with issues.
	StatusDegraded
	// StatusUnhealthy indicates the component is not functioning properly.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a health check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Timestamp time.Time
	Error     error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is any component that can report its health.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts an ordinary function into a Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string { return f.name }

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// CheckerSet runs a named collection of checkers and combines their
// results into an overall status.
type CheckerSet struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewCheckerSet creates an empty checker set.
func NewCheckerSet() *CheckerSet {
	return &CheckerSet{checkers: make(map[string]Checker)}
}

// Register adds a checker under the given name, replacing any previous
// checker with that name.
func (s *CheckerSet) Register(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.checkers[name]; !exists {
		s.order = append(s.order, name)
	}
	s.checkers[name] = checker
}

// Names returns registered checker names in registration order.
func (s *CheckerSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Check runs a single named checker.
func (s *CheckerSet) Check(ctx context.Context, name string) (Result, error) {
	s.mu.RLock()
	checker, ok := s.checkers[name]
	s.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}
	return checker.Check(ctx), nil
}

// CheckAll runs every registered checker concurrently and returns the
// results keyed by name.
func (s *CheckerSet) CheckAll(ctx context.Context) map[string]Result {
	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for name, checker := range s.checkers {
		checkers[name] = checker
	}
	s.mu.RUnlock()

	results := make(map[string]Result, len(checkers))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for name, checker := range checkers {
		g.Go(func() error {
			result := checker.Check(ctx)
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// OverallStatus combines a set of results: unhealthy dominates, then
// degraded, then healthy.
func (s *CheckerSet) OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}
