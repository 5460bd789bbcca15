// Package event provides the pub-sub bus through which the fleet model
// announces changes to collaborators (a UI, the event relay, tests).
//
// The fleet model, recovery coordinator, workflow driver and chaos surface
// publish; anything that wants to observe the fleet subscribes. Publishers
// never know who is listening.
//
// # Main Types
//
//   - [Event]: interface implemented by every notification (EventType, Timestamp)
//   - [Bus]: synchronous, panic-safe dispatcher
//   - [Handler]: func(Event)
//
// # Event Types
//
// Event types follow the pattern "category.action":
//   - agent.changed, task.reassigned, tasks.replaced, fleet.reset
//   - resilience.recorded
//   - control.emergency_stop, control.never_stop
//   - workflow.progress
//   - recovery.thinking
//
// # Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeResilienceRecorded, func(e event.Event) {
//	    rec := e.(event.ResilienceRecordedEvent)
//	    fmt.Println(rec.Kind, rec.TargetAgentID, rec.Details)
//	})
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine, so they must not block and must not call back into
// the publisher while it holds its own locks (the fleet model publishes only
// after releasing its lock).
package event
