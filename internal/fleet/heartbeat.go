package fleet

import (
	"context"
	"time"

	"github.com/oeoc/neverstop/internal/clock"
)

// HeartbeatPump stands in for the agents' own heartbeats: on every
// interval it refreshes LastSync for each agent that is up and not
// silenced. Silencing an agent (or faulting it) lets it go stale.
type HeartbeatPump struct {
	model    *Model
	clock    clock.Clock
	interval time.Duration
}

// NewHeartbeatPump creates a pump. A non-positive interval makes Run
// return immediately.
func NewHeartbeatPump(model *Model, c clock.Clock, interval time.Duration) *HeartbeatPump {
	if c == nil {
		c = clock.Real()
	}
	return &HeartbeatPump{model: model, clock: c, interval: interval}
}

// Run pumps heartbeats until ctx is cancelled.
func (p *HeartbeatPump) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.clock.After(p.interval):
			p.model.HeartbeatAll()
		}
	}
}
