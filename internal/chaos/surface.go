package chaos

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/gobwas/glob"

	"github.com/oeoc/neverstop/internal/errors"
	"github.com/oeoc/neverstop/internal/fleet"
	"github.com/oeoc/neverstop/internal/logging"
)

// Chaos parameters.
const (
	CascadeSize      = 5
	StressLatencyMS  = 300
	StressCPUPct     = 98
	StressHealthDrop = 30
	RecoveredLatency = 45
)

// KillSwitchDetails is recorded when the emergency stop is engaged.
const KillSwitchDetails = "GLOBAL KILL SWITCH ENGAGED. All autonomous operations locked."

// Option configures a Surface.
type Option func(*Surface)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Surface) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRand sets the random source used to pick cascade victims.
func WithRand(r *rand.Rand) Option {
	return func(s *Surface) {
		if r != nil {
			s.rng = r
		}
	}
}

// Surface applies operator actions to a fleet model.
type Surface struct {
	model  *fleet.Model
	logger *logging.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New creates a Surface for model.
func New(model *fleet.Model, opts ...Option) *Surface {
	s := &Surface{
		model:  model,
		logger: logging.NopLogger(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("chaos")
	return s
}

// InjectFault forces an agent into the error state with zero health.
func (s *Surface) InjectFault(agentID string) error {
	_, err := s.model.UpdateAgent(agentID, fleet.CauseFault, func(a *fleet.Agent) {
		a.Status = fleet.StatusError
		a.HealthScore = 0
	})
	if err != nil {
		return err
	}

	s.model.RecordEvent(fleet.EventFaultDetected, agentID,
		fmt.Sprintf("Fault injected on %s. Node forced into error state.", agentID),
		fleet.SeverityHigh)
	s.logger.Warn("fault injected", "agent_id", agentID)
	return nil
}

// InjectFaultMatching injects a fault into every agent whose id matches
// the glob pattern and returns the affected ids.
func (s *Surface) InjectFaultMatching(pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.NewValidationError("invalid agent pattern").
			WithField("pattern").WithValue(pattern).WithCause(err)
	}

	var hit []string
	for _, a := range s.model.Agents() {
		if !g.Match(a.ID) {
			continue
		}
		if err := s.InjectFault(a.ID); err != nil {
			return hit, err
		}
		hit = append(hit, a.ID)
	}
	return hit, nil
}

// RecoverAgent returns an agent to service: idle, full health, a fresh
// last sync, nominal latency and heartbeats resumed.
func (s *Surface) RecoverAgent(agentID string) error {
	now := s.model.Now()
	_, err := s.model.UpdateAgent(agentID, fleet.CauseRecover, func(a *fleet.Agent) {
		a.Status = fleet.StatusIdle
		a.HealthScore = 100
		a.Metrics.LastSync = now
		a.Metrics.LatencyMS = RecoveredLatency
	})
	if err != nil {
		return err
	}
	if err := s.model.SetHeartbeatSilenced(agentID, false); err != nil {
		return err
	}

	s.logger.Info("agent recovered", "agent_id", agentID)
	return nil
}

// TriggerCascadeFailure injects faults into up to CascadeSize random
// agents that are currently busy or idle, and returns their ids.
func (s *Surface) TriggerCascadeFailure() []string {
	var active []string
	for _, a := range s.model.Agents() {
		if a.Status == fleet.StatusBusy || a.Status == fleet.StatusIdle {
			active = append(active, a.ID)
		}
	}

	s.mu.Lock()
	s.rng.Shuffle(len(active), func(i, j int) { active[i], active[j] = active[j], active[i] })
	s.mu.Unlock()
	victims := active[:min(CascadeSize, len(active))]

	var hit []string
	for _, id := range victims {
		if err := s.InjectFault(id); err != nil {
			s.logger.Warn("cascade victim vanished", "agent_id", id, "error", err)
			continue
		}
		hit = append(hit, id)
	}
	s.logger.Warn("cascade failure triggered", "agents", hit)
	return hit
}

// TriggerStressTest raises every agent's latency, pins its CPU and drops
// its health, floored at zero. It returns the number of agents affected.
func (s *Surface) TriggerStressTest() int {
	changed := s.model.UpdateAgents(fleet.CauseStress, func(a *fleet.Agent) bool {
		a.Metrics.LatencyMS += StressLatencyMS
		a.Metrics.CPUPct = StressCPUPct
		a.HealthScore = max(0, a.HealthScore-StressHealthDrop)
		return true
	})

	s.model.RecordEvent(fleet.EventProactiveThrottling, fleet.TargetCluster,
		fmt.Sprintf("Stress test applied to %d nodes: +%dms latency, CPU at %d%%.", len(changed), StressLatencyMS, StressCPUPct),
		fleet.SeverityMedium)
	s.logger.Warn("stress test triggered", "agents", len(changed))
	return len(changed)
}

// SilenceHeartbeat stops heartbeats for an agent so it goes stale.
// RecoverAgent lifts the silence.
func (s *Surface) SilenceHeartbeat(agentID string) error {
	if err := s.model.SetHeartbeatSilenced(agentID, true); err != nil {
		return err
	}
	s.logger.Info("heartbeat silenced", "agent_id", agentID)
	return nil
}

// ToggleEmergencyStop flips the global stop and returns the new state.
// Engaging it records a DIAGNOSTIC_FAILURE event; releasing it records
// nothing and does not replay dropped recoveries.
func (s *Surface) ToggleEmergencyStop() bool {
	engaged := s.model.ToggleEmergencyStop()
	if engaged {
		s.model.RecordEvent(fleet.EventDiagnosticFailure, fleet.TargetSystem, KillSwitchDetails, fleet.SeverityHigh)
	}
	return engaged
}

// SetNeverStop enables or disables autonomous recovery and reports
// whether the setting changed.
func (s *Surface) SetNeverStop(enabled bool) bool {
	return s.model.SetNeverStop(enabled)
}
