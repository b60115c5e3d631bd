// Package batch drives a bulk work list through a protected call path in
// fixed-size batches with pauses in between.
//
// The pause between batches grows with the number of batches already
// processed and carries randomized jitter, so a long run never presents a
// perfectly periodic call signature to the remote service. Before every
// item the scheduler consults its Halter; a halt stops the run
// immediately and returns the results gathered so far plus the reason.
// This is the primary control that curtails a bulk run before quota
// exhaustion or a hard block, independent of any circuit breaker.
//
// # Basic Usage
//
//	sched := batch.NewScheduler(batch.Config{BatchSize: 10}, monitor)
//	report, err := batch.Run(ctx, sched, items,
//	    func(ctx context.Context, item string) (string, error) {
//	        return lookup(ctx, item)
//	    })
//	if report.Halted {
//	    log.Printf("run curtailed: %s", report.HaltReason)
//	}
package batch
