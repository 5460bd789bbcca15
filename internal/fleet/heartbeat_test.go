package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oeoc/neverstop/internal/event"
)

func TestHeartbeatPump_RefreshesOnInterval(t *testing.T) {
	m, fc := newTestModel(t)
	require.NoError(t, m.SetHeartbeatSilenced("a2", true))

	beats := make(chan []string, 4)
	m.Bus().Subscribe(event.TypeAgentChanged, func(e event.Event) {
		if ce := e.(event.AgentChangedEvent); ce.Cause == CauseHeartbeat {
			beats <- ce.AgentIDs
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	pump := NewHeartbeatPump(m, fc, 2*time.Second)
	go func() {
		pump.Run(ctx)
		close(done)
	}()

	fc.WaitForWaiters(1)
	fc.Advance(2 * time.Second)

	select {
	case ids := <-beats:
		assert.Equal(t, []string{"a1"}, ids)
	case <-time.After(time.Second):
		t.Fatal("no heartbeat published")
	}

	a1, _ := m.Agent("a1")
	assert.Equal(t, t0.Add(2*time.Second), a1.Metrics.LastSync)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop")
	}
}

func TestHeartbeatPump_DisabledInterval(t *testing.T) {
	m, fc := newTestModel(t)

	done := make(chan struct{})
	go func() {
		NewHeartbeatPump(m, fc, 0).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero interval should return immediately")
	}
}
