package fleet

import (
	"io"

	"github.com/oklog/ulid/v2"
)

// DefaultEventCapacity is the number of resilience events retained.
const DefaultEventCapacity = 50

// eventLog is a bounded, newest-first list of resilience events.
// It is not safe for concurrent use; the Model serializes access.
type eventLog struct {
	capacity int
	entries  []ResilienceEvent
	entropy  io.Reader
}

func newEventLog(capacity int) *eventLog {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &eventLog{
		capacity: capacity,
		entries:  make([]ResilienceEvent, 0, capacity),
		entropy:  ulid.DefaultEntropy(),
	}
}

// append stamps e with an id (when missing) and puts it at the front,
// evicting the oldest entry once capacity is exceeded.
func (l *eventLog) append(e ResilienceEvent) ResilienceEvent {
	if e.ID == "" {
		id, err := ulid.New(ulid.Timestamp(e.Timestamp), l.entropy)
		if err != nil {
			// Timestamps outside the ulid range get an id for the current time.
			id = ulid.Make()
		}
		e.ID = id.String()
	}

	l.entries = append(l.entries, ResilienceEvent{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = e

	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	return e
}

// seed loads historical events given oldest-last (the log's own order).
func (l *eventLog) seed(events []ResilienceEvent) {
	for i := len(events) - 1; i >= 0; i-- {
		l.append(events[i])
	}
}

func (l *eventLog) snapshot() []ResilienceEvent {
	out := make([]ResilienceEvent, len(l.entries))
	copy(out, l.entries)
	return out
}
