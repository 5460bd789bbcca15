package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/oeoc/neverstop/internal/clock"
	"github.com/oeoc/neverstop/internal/fleet"
	"github.com/oeoc/neverstop/internal/logging"
)

// DefaultInterval is the scan period.
const DefaultInterval = 2500 * time.Millisecond

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the scan period.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithClock sets the time source driving ticks.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// Monitor periodically evaluates a Policy against the fleet model and
// forwards detections to a Submitter.
type Monitor struct {
	model     *fleet.Model
	submitter Submitter
	policy    *Policy
	clock     clock.Clock
	logger    *logging.Logger
	interval  time.Duration

	mu       sync.Mutex
	handlers []func(Detection)
	cancel   context.CancelFunc
}

// New creates a Monitor reading model and submitting to s.
func New(model *fleet.Model, s Submitter, policy *Policy, opts ...Option) *Monitor {
	if policy == nil {
		policy = NewPolicy()
	}
	m := &Monitor{
		model:     model,
		submitter: s,
		policy:    policy,
		clock:     clock.Real(),
		logger:    logging.NopLogger(),
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("monitor")
	return m
}

// OnDetection registers a callback invoked for every detection after it
// was submitted. Multiple handlers may be registered.
func (m *Monitor) OnDetection(handler func(Detection)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Policy returns the policy evaluated on every tick.
func (m *Monitor) Policy() *Policy {
	return m.policy
}

// Start runs a tick every interval. It blocks until the context is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	defer cancel()

	m.logger.Info("monitor started", "interval", m.interval)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-m.clock.After(m.interval):
			m.Tick()
		}
	}
}

// Stop cancels a running Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Tick performs one scan and returns its detections. It returns nil
// without scanning while Never-Stop is off or the emergency stop is on.
func (m *Monitor) Tick() []Detection {
	snap := m.model.Snapshot()
	if !snap.NeverStop || snap.EmergencyStop {
		return nil
	}

	detections := m.policy.Evaluate(snap)
	if len(detections) == 0 {
		return nil
	}

	m.mu.Lock()
	handlers := make([]func(Detection), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for i := range detections {
		d := &detections[i]
		d.Accepted = m.submitter.Submit(d.Submission())
		if d.Accepted {
			m.logger.Info("anomaly submitted",
				"reason", string(d.Reason), "agent_id", d.AgentID, "task_id", d.Task.ID)
		}
		for _, h := range handlers {
			h(*d)
		}
	}
	return detections
}
