package monitor

import (
	"sync"
	"time"

	"github.com/oeoc/neverstop/internal/fleet"
)

// Default policy values.
const (
	DefaultStaleAfter        = 10 * time.Second
	DefaultDegradedThreshold = 40
)

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithStaleAfter sets how old an agent's last sync may get before it is
// considered stale.
func WithStaleAfter(d time.Duration) PolicyOption {
	return func(p *Policy) { p.staleAfter = d }
}

// WithDegradedThreshold sets the health below which a degraded agent has
// its task re-balanced.
func WithDegradedThreshold(h float64) PolicyOption {
	return func(p *Policy) { p.degradedThreshold = h }
}

// Policy holds the detection rules. It is safe for concurrent use.
type Policy struct {
	mu                sync.RWMutex
	staleAfter        time.Duration
	degradedThreshold float64
}

// NewPolicy creates a Policy with the given options.
// Unset options use defaults.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{
		staleAfter:        DefaultStaleAfter,
		degradedThreshold: DefaultDegradedThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Update replaces the thresholds, for example after a configuration reload.
func (p *Policy) Update(staleAfter time.Duration, degradedThreshold float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staleAfter = staleAfter
	p.degradedThreshold = degradedThreshold
}

// Evaluate inspects snap and returns the detections of one tick in
// precedence order: every stale agent, then the first failed agent, then
// the first degraded agent under the threshold. Anomalous agents without
// an assigned task produce nothing. The three checks are independent, so
// one agent can appear more than once.
func (p *Policy) Evaluate(snap fleet.Snapshot) []Detection {
	p.mu.RLock()
	staleAfter, threshold := p.staleAfter, p.degradedThreshold
	p.mu.RUnlock()

	var out []Detection
	add := func(reason fleet.Reason, agentID string) {
		if task, ok := snap.TaskFor(agentID); ok {
			out = append(out, Detection{Reason: reason, AgentID: agentID, Task: task})
		}
	}

	for _, a := range snap.Agents {
		if a.Status != fleet.StatusError && snap.At.Sub(a.Metrics.LastSync) > staleAfter {
			add(fleet.ReasonStale, a.ID)
		}
	}

	for _, a := range snap.Agents {
		if a.Status == fleet.StatusError {
			add(fleet.ReasonFailure, a.ID)
			break
		}
	}

	for _, a := range snap.Agents {
		if a.Status == fleet.StatusDegraded && a.HealthScore < threshold {
			add(fleet.ReasonDegraded, a.ID)
			break
		}
	}

	return out
}
