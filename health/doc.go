// Package health tracks rolling aggregate statistics for a run of
// protected calls and decides when the run must stop.
//
// The Monitor receives one outcome per call and maintains additive
// counters plus a bounded latency buffer. It distinguishes advisory
// alerts (CheckAlerts) from hard-stop conditions (ShouldHalt): alerts
// tell the operator something looks off, the halt signal tells the batch
// scheduler to curtail the run before quota exhaustion or a hard block.
//
// # Basic Usage
//
//	mon := health.NewMonitor(health.MonitorConfig{})
//	mon.Record(remote.OutcomeSuccess, 120*time.Millisecond)
//
//	if halt, reason := mon.ShouldHalt(); halt {
//	    log.Printf("stopping run: %s", reason)
//	}
//
// # Composite checks
//
// The Status/Checker types let several components report health through
// one surface. The Monitor is itself a Checker; the guard package also
// registers breaker and quota checkers:
//
//	set := health.NewCheckerSet()
//	set.Register("calls", mon)
//	results := set.CheckAll(ctx)
//	overall := set.OverallStatus(results)
package health
