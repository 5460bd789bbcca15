package fleet

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_BoundedNewestFirst(t *testing.T) {
	l := newEventLog(DefaultEventCapacity)

	for i := range 75 {
		l.append(ResilienceEvent{Timestamp: t0, Details: fmt.Sprintf("e%d", i)})
	}

	entries := l.snapshot()
	require.Len(t, entries, DefaultEventCapacity)
	assert.Equal(t, "e74", entries[0].Details)
	assert.Equal(t, "e25", entries[len(entries)-1].Details)

	seen := map[string]bool{}
	for _, e := range entries {
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
}

func TestEventLog_KeepsGivenID(t *testing.T) {
	l := newEventLog(2)
	e := l.append(ResilienceEvent{ID: "ev-1", Timestamp: t0})
	assert.Equal(t, "ev-1", e.ID)
}

func TestEventLog_NonPositiveCapacity(t *testing.T) {
	assert.Equal(t, DefaultEventCapacity, newEventLog(0).capacity)
	assert.Equal(t, DefaultEventCapacity, newEventLog(-4).capacity)
}

func TestEventLog_SeedPreservesOrder(t *testing.T) {
	l := newEventLog(10)
	l.seed([]ResilienceEvent{
		{Details: "newest", Timestamp: t0},
		{Details: "middle", Timestamp: t0},
		{Details: "oldest", Timestamp: t0},
	})

	entries := l.snapshot()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"newest", "middle", "oldest"},
		[]string{entries[0].Details, entries[1].Details, entries[2].Details})
}

func TestEventLog_SnapshotIsCopy(t *testing.T) {
	l := newEventLog(5)
	l.append(ResilienceEvent{Details: "x", Timestamp: t0})

	snap := l.snapshot()
	snap[0].Details = "changed"
	assert.Equal(t, "x", l.snapshot()[0].Details)
}

func TestEventLog_ZeroTimestampGetsID(t *testing.T) {
	l := newEventLog(2)
	var e ResilienceEvent
	require.NotPanics(t, func() { e = l.append(ResilienceEvent{Details: "undated"}) })
	assert.Len(t, e.ID, 26)
}
