// Package monitor provides the continuity monitor that scans the fleet on a
// fixed period and hands orphaned tasks to recovery.
//
// The core types are:
//
//   - [Policy]: the pure detection rules (stale heartbeat, hard failure,
//     degraded performance) evaluated against a fleet snapshot
//   - [Monitor]: runs the policy on every tick and forwards each detection
//     to a [Submitter], normally a recovery coordinator
//   - [Detection]: one (task, failed agent, reason) found by a tick
//
// # Usage
//
//	policy := monitor.NewPolicy(
//	    monitor.WithStaleAfter(10 * time.Second),
//	    monitor.WithDegradedThreshold(40),
//	)
//
//	mon := monitor.New(model, coordinator, policy, monitor.WithInterval(2500*time.Millisecond))
//	mon.OnDetection(func(d monitor.Detection) {
//	    log.Printf("detected %s on %s accepted=%v", d.Reason, d.AgentID, d.Accepted)
//	})
//	go mon.Start(ctx)
//	defer mon.Stop()
//
// A tick is skipped entirely while Never-Stop is disabled or the emergency
// stop is engaged. The monitor keeps no state between ticks.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package monitor
