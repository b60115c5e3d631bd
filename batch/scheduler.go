package batch

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/callguard/callguard/resilience"
)

// Halter reports whether a run must stop now, with the reason. The
// health monitor satisfies this interface.
type Halter interface {
	ShouldHalt() (bool, string)
}

// Config configures the scheduler.
type Config struct {
	// BatchSize is the number of items per batch.
	// Default: 10
	BatchSize int

	// MaxWorkers caps how many items run concurrently within a batch.
	// For trial-tier accounts this should stay small.
	// Default: 3
	MaxWorkers int

	// MinPause is the pause after the first batch. Later pauses grow by
	// PauseGrowth per completed batch, capped at MaxPause.
	// Default: 5 seconds
	MinPause time.Duration

	// MaxPause caps the pause between batches before jitter.
	// Default: 60 seconds
	MaxPause time.Duration

	// PauseGrowth is the per-batch fractional increase of the pause.
	// The exact curve is a tunable heuristic, not a correctness
	// requirement.
	// Default: 0.1
	PauseGrowth float64

	// Jitter adds a uniform 15-30% of the pause. Default: true (set
	// JitterOff to disable)
	JitterOff bool

	// OnBatch is called after each batch completes, with the zero-based
	// batch index and the number of items attempted so far.
	OnBatch func(batch, processed int)

	// OnPause is called before each inter-batch pause.
	OnPause func(batch int, pause time.Duration)
}

// Scheduler partitions work into batches and paces them out.
type Scheduler struct {
	config   Config
	halter   Halter
	bulkhead *resilience.Bulkhead
}

// NewScheduler creates a scheduler. halter may be nil, in which case the
// run only stops on context cancellation.
func NewScheduler(config Config, halter Halter) *Scheduler {
	// Apply defaults
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 3
	}
	if config.MinPause <= 0 {
		config.MinPause = 5 * time.Second
	}
	if config.MaxPause <= 0 {
		config.MaxPause = 60 * time.Second
	}
	if config.PauseGrowth <= 0 {
		config.PauseGrowth = 0.1
	}

	return &Scheduler{
		config: config,
		halter: halter,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: config.MaxWorkers,
		}),
	}
}

// Config returns the scheduler configuration after defaults.
func (s *Scheduler) Config() Config {
	return s.config
}

// WorkerMetrics returns statistics from the worker-slot bulkhead.
func (s *Scheduler) WorkerMetrics() resilience.BulkheadMetrics {
	return s.bulkhead.Metrics()
}

// ItemResult pairs one work item with its outcome.
type ItemResult[T, R any] struct {
	Item  T
	Value R
	Err   error
}

// Report holds the results of a run, possibly partial.
type Report[T, R any] struct {
	// Results contains one entry per attempted item, in input order.
	Results []ItemResult[T, R]

	// Processed is the number of items attempted.
	Processed int

	// Batches is the number of batches completed.
	Batches int

	// Halted is true when the Halter stopped the run early.
	Halted bool

	// HaltReason is the Halter's reason when Halted is true.
	HaltReason string
}

// Run feeds items through worker in fixed-size batches, pausing between
// batches and consulting the Halter before every item. A halt or a
// cancelled context stops the run; the report then carries the partial
// results. Worker errors are recorded per item and do not stop the run.
func Run[T, R any](ctx context.Context, s *Scheduler, items []T, worker func(context.Context, T) (R, error)) (Report[T, R], error) {
	results := make([]ItemResult[T, R], len(items))
	attempted := make([]bool, len(items))

	var report Report[T, R]
	var runErr error

	halted := func() bool {
		if report.Halted {
			return true
		}
		if s.halter == nil {
			return false
		}
		if halt, reason := s.halter.ShouldHalt(); halt {
			report.Halted = true
			report.HaltReason = reason
			return true
		}
		return false
	}

	size := s.config.BatchSize
	var mu sync.Mutex

outer:
	for batch := 0; batch*size < len(items); batch++ {
		start := batch * size
		end := min(start+size, len(items))

		if batch > 0 {
			if err := s.pause(ctx, batch); err != nil {
				runErr = err
				break
			}
			if halted() {
				break
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.MaxWorkers)
		var stop bool

		for i := start; i < end; i++ {
			mu.Lock()
			stopped := stop
			mu.Unlock()
			if stopped || halted() {
				break
			}

			g.Go(func() error {
				err := s.bulkhead.Execute(gctx, func(ctx context.Context) error {
					value, err := worker(ctx, items[i])
					mu.Lock()
					results[i] = ItemResult[T, R]{Item: items[i], Value: value, Err: err}
					attempted[i] = true
					mu.Unlock()
					return nil
				})
				if err != nil {
					mu.Lock()
					stop = true
					mu.Unlock()
				}
				return err
			})
		}

		if err := g.Wait(); err != nil {
			runErr = err
			break
		}
		if halted() {
			break outer
		}

		report.Batches++
		if s.config.OnBatch != nil {
			s.config.OnBatch(batch, countAttempted(attempted))
		}
	}

	for i, ok := range attempted {
		if ok {
			report.Results = append(report.Results, results[i])
		}
	}
	report.Processed = len(report.Results)

	return report, runErr
}

// pause sleeps between batches. The pause grows with batches already
// processed and is interruptible by context cancellation; the Halter is
// re-checked by the caller once the pause returns.
func (s *Scheduler) pause(ctx context.Context, batchesDone int) error {
	pause := s.pauseFor(batchesDone)

	if s.config.OnPause != nil {
		s.config.OnPause(batchesDone-1, pause)
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pauseFor computes the fatigue pause before batch batchesDone.
func (s *Scheduler) pauseFor(batchesDone int) time.Duration {
	pause := time.Duration(float64(s.config.MinPause) * (1 + s.config.PauseGrowth*float64(batchesDone)))
	if pause > s.config.MaxPause {
		pause = s.config.MaxPause
	}

	if !s.config.JitterOff && pause > 0 {
		// Uniform 15-30% of the pause.
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		low := int64(pause) * 15 / 100
		high := int64(pause) * 30 / 100
		pause += time.Duration(low + rand.Int64N(high-low+1))
	}

	return pause
}

func countAttempted(attempted []bool) int {
	n := 0
	for _, ok := range attempted {
		if ok {
			n++
		}
	}
	return n
}
