// Package recovery turns a (task, failed agent, reason) submission into a
// completed or aborted migration.
//
// The [Coordinator] guarantees at most one recovery in flight per task id
// and refuses new submissions while the global emergency stop is engaged.
// An accepted submission runs on its own goroutine:
//
//  1. record HEARTBEAT_TIMEOUT (stale) or REASSIGNMENT_INITIATED
//  2. select candidates with [SelectCandidates]; none means
//     resource exhaustion and a DIAGNOSTIC_FAILURE event
//  3. ask the [decision.Client]; an unparseable answer falls back to the
//     top candidate, any other failure aborts with DIAGNOSTIC_FAILURE
//  4. record STRATEGY_APPLIED, wait the migration delay, apply the
//     migration atomically and record REASSIGNMENT_COMPLETE
//
// The in-flight guard and the thinking indicator are released on every
// exit path, including a panic inside the decision client.
//
// An emergency stop engaged while a recovery is in flight does not cancel
// it; only new submissions are refused. Close cancels in-flight work.
package recovery
