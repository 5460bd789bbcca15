// Package fleet owns the in-memory fleet: agents, the tasks assigned to
// them, the bounded resilience event log, and the two operator flags
// (Never-Stop and the global emergency stop).
//
// [Model] is the single owner of these collections. Every other component
// reads snapshots and requests mutations through Model methods; nothing
// keeps a private copy. Each mutation is applied under one lock, so an
// observer never sees a task pointing at an agent that is not yet busy.
//
// After a mutation the model publishes a change notification on the
// [event.Bus] it was given. Notifications are published after the lock is
// released, so handlers may call back into the model.
//
// A fleet comes from one of two places:
//
//   - [SeedFleet] generates the demo fleet (agent-1..agent-N, four tasks,
//     four historical events)
//   - [LoadFile] reads a YAML fleet definition and validates it
//
// # Thread Safety
//
// All Model methods are safe for concurrent use.
package fleet
