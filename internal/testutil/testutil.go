// Package testutil provides testing utilities for neverstop tests.
package testutil

import (
	"slices"
	"testing"
	"time"

	"github.com/oeoc/neverstop/internal/clock"
	"github.com/oeoc/neverstop/internal/event"
	"github.com/oeoc/neverstop/internal/fleet"
)

// T0 is the fixed start time of fake clocks created by this package.
var T0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Agent builds a worker agent with the given status and health.
func Agent(id string, status fleet.Status, health float64, tags ...string) fleet.Agent {
	return fleet.Agent{
		ID:             id,
		OrchestratorID: "o1",
		Type:           fleet.AgentTypeWorker,
		Status:         status,
		HealthScore:    health,
		CapabilityTags: tags,
		Metrics:        fleet.Metrics{LatencyMS: 40, LastSync: T0},
	}
}

// Task builds a medium priority task assigned to agentID.
func Task(id, label, agentID string) fleet.Task {
	return fleet.Task{
		ID:         id,
		Label:      label,
		AssignedTo: agentID,
		Priority:   fleet.PriorityMedium,
		WorkflowID: "wf-test",
	}
}

// NewModel creates a Model for f on a fake clock started at T0.
// The model's bus is returned through Model.Bus.
func NewModel(t *testing.T, f fleet.Fleet, opts ...fleet.Option) (*fleet.Model, *clock.FakeClock) {
	t.Helper()

	fc := clock.Fake(T0)
	opts = append([]fleet.Option{fleet.WithClock(fc), fleet.WithBus(event.NewBus())}, opts...)
	m, err := fleet.NewModel(f, opts...)
	if err != nil {
		t.Fatalf("failed to create model: %v", err)
	}
	return m, fc
}

// EventTypes returns the types of events in emission order. The model's
// log is newest first.
func EventTypes(events []fleet.ResilienceEvent) []fleet.EventType {
	types := make([]fleet.EventType, len(events))
	for i, e := range events {
		types[len(events)-1-i] = e.Type
	}
	return types
}

// CountEvents returns how many events in events have type typ.
func CountEvents(events []fleet.ResilienceEvent, typ fleet.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// HasEvent reports whether any event has type typ.
func HasEvent(events []fleet.ResilienceEvent, typ fleet.EventType) bool {
	return slices.ContainsFunc(events, func(e fleet.ResilienceEvent) bool { return e.Type == typ })
}

// WaitFor polls cond until it returns true or timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", msg)
		}
		time.Sleep(time.Millisecond)
	}
}
