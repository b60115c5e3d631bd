// Package guard composes the protection layers into a single facade for
// calling a rate-limited remote service.
//
// Every call follows the same sequence: acquire a token from the rate
// limiter (blocking), run the retry-wrapped call function through the
// target's circuit breaker, then unconditionally write one audit record
// and one health monitor record. Breaker short-circuits are recorded with
// a distinct outcome so a rejected call is never mistaken for a remote
// failure.
//
// # Basic Usage
//
//	g, err := guard.New(guard.Config{})
//	if err != nil {
//	    return err
//	}
//	defer g.Close()
//
//	result := g.Execute(ctx, "serpapi", func(ctx context.Context) error {
//	    return client.Search(ctx, query)
//	})
//	if result.Err != nil {
//	    log.Printf("call failed: %s (%s)", result.Err, result.Outcome)
//	}
//
// The Guard satisfies batch.Halter, so it can drive a batch scheduler
// directly:
//
//	sched := batch.NewScheduler(batch.Config{}, g)
package guard
