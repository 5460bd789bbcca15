package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oeoc/neverstop/internal/logging"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestBus_SubscribeDoesNotDeliverRetroactively(t *testing.T) {
	bus := NewBus()

	called := false
	id := bus.Subscribe(TypeEmergencyStop, func(Event) { called = true })

	if !strings.HasPrefix(id, "sub-") {
		t.Errorf("Subscribe() id = %q, want sub- prefix", id)
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}
	if called {
		t.Error("handler ran before any publish")
	}
}

func TestBus_PublishTypedEvent(t *testing.T) {
	bus := NewBus()

	var got TaskReassignedEvent
	bus.Subscribe(TypeTaskReassigned, func(e Event) {
		got = e.(TaskReassignedEvent)
	})

	bus.Publish(NewTaskReassignedEvent(epoch, "tsk-101", "agent-12", "agent-3", "FAILURE"))

	if got.TaskID != "tsk-101" || got.FromAgent != "agent-12" || got.ToAgent != "agent-3" {
		t.Errorf("unexpected payload: %+v", got)
	}
	if !got.Timestamp().Equal(epoch) {
		t.Errorf("Timestamp() = %v, want %v", got.Timestamp(), epoch)
	}
}

func TestBus_OnlyMatchingTypeReceives(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(TypeNeverStop, func(Event) {
		t.Error("never-stop handler received an emergency stop event")
	})
	stops := 0
	bus.Subscribe(TypeEmergencyStop, func(Event) { stops++ })
	bus.Subscribe(TypeEmergencyStop, func(Event) { stops++ })

	bus.Publish(NewEmergencyStopEvent(epoch, true))

	if stops != 2 {
		t.Errorf("emergency stop handlers ran %d times, want 2", stops)
	}
}

func TestBus_WildcardRunsAfterSpecific(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all:"+e.EventType()) })
	bus.Subscribe(TypeFleetReset, func(e Event) { order = append(order, "reset") })

	bus.Publish(NewFleetResetEvent(epoch, 50, 4))
	bus.Publish(NewNeverStopEvent(epoch, false))

	want := []string{"reset", "all:" + TypeFleetReset, "all:" + TypeNeverStop}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("delivery order = %v, want %v", order, want)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := map[string]int{}
	first := bus.Subscribe(TypeWorkflowProgress, func(Event) { calls["first"]++ })
	bus.Subscribe(TypeWorkflowProgress, func(Event) { calls["second"]++ })

	if !bus.Unsubscribe(first) {
		t.Fatal("Unsubscribe() = false for a live subscription")
	}
	if bus.Unsubscribe(first) {
		t.Error("Unsubscribe() = true for an already removed subscription")
	}
	if bus.Unsubscribe("sub-unknown") {
		t.Error("Unsubscribe() = true for an unknown id")
	}

	bus.Publish(NewWorkflowProgressEvent(epoch, "run-1", 10))

	if calls["first"] != 0 || calls["second"] != 1 {
		t.Errorf("calls = %v, want first=0 second=1", calls)
	}
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()

	var id string
	calls := 0
	id = bus.Subscribe(TypeRecoveryThinking, func(Event) {
		calls++
		bus.Unsubscribe(id)
	})

	bus.Publish(NewThinkingEvent(epoch, true, ""))
	bus.Publish(NewThinkingEvent(epoch, false, ""))

	if calls != 1 {
		t.Errorf("self-removing handler ran %d times, want 1", calls)
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TypeAgentChanged, func(Event) {})
	bus.Subscribe(TypeTasksReplaced, func(Event) {})
	bus.SubscribeAll(func(Event) {})

	bus.Clear()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d", bus.SubscriptionCount())
	}
}

func TestBus_PanickingHandlerIsLogged(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(WithLogger(logging.NewWriterLogger(&buf, "debug")))

	delivered := false
	bus.Subscribe(TypeResilienceRecorded, func(Event) { panic("boom") })
	bus.Subscribe(TypeResilienceRecorded, func(Event) { delivered = true })

	bus.Publish(NewResilienceRecordedEvent(epoch, "evt-1", "STRATEGY_APPLIED", "agent-3", "moved", "low"))

	if !delivered {
		t.Error("handler after the panicking one was skipped")
	}
	if !strings.Contains(buf.String(), "event handler panicked") {
		t.Errorf("panic not logged, output: %s", buf.String())
	}
	if !strings.Contains(buf.String(), TypeResilienceRecorded) {
		t.Errorf("log line lacks event type, output: %s", buf.String())
	}
}

func TestBus_WithNilLoggerKeepsDefault(t *testing.T) {
	bus := NewBus(WithLogger(nil))
	bus.Subscribe(TypeFleetReset, func(Event) { panic("boom") })

	bus.Publish(NewFleetResetEvent(epoch, 1, 1))
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := 0
	bus.Subscribe(TypeAgentChanged, func(Event) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Go(func() {
			bus.Publish(NewAgentChangedEvent(epoch, "heartbeat", "agent-"+string(rune('a'+i%26))))
		})
	}
	wg.Wait()

	if seen != 64 {
		t.Errorf("handler saw %d events, want 64", seen)
	}
}

func TestBus_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	ids := map[string]bool{}
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			id := bus.Subscribe(TypeAgentChanged, func(Event) {})
			mu.Lock()
			if ids[id] {
				t.Errorf("duplicate subscription id %s", id)
			}
			ids[id] = true
			mu.Unlock()
			bus.Unsubscribe(id)
		})
	}
	wg.Wait()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", bus.SubscriptionCount())
	}
}
