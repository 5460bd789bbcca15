package fleet

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oeoc/neverstop/internal/clock"
	"github.com/oeoc/neverstop/internal/errors"
	"github.com/oeoc/neverstop/internal/event"
	"github.com/oeoc/neverstop/internal/logging"
)

// Causes attached to AgentChangedEvent notifications.
const (
	CauseFault     = "fault"
	CauseRecover   = "recover"
	CauseStress    = "stress"
	CauseMigration = "migration"
	CauseHeartbeat = "heartbeat"
	CauseWorkflow  = "workflow"
)

// Option configures a Model.
type Option func(*Model)

// WithClock sets the time source used for heartbeats and event timestamps.
func WithClock(c clock.Clock) Option {
	return func(m *Model) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithBus sets the bus that receives change notifications.
func WithBus(b *event.Bus) Option {
	return func(m *Model) {
		if b != nil {
			m.bus = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithEventCapacity overrides how many resilience events are retained.
func WithEventCapacity(n int) Option {
	return func(m *Model) { m.eventCapacity = n }
}

// WithNeverStop sets the initial state of the Never-Stop flag (default on).
func WithNeverStop(enabled bool) Option {
	return func(m *Model) { m.neverStop = enabled }
}

// Model is the single owner of the fleet's agents, tasks and resilience log.
type Model struct {
	mu       sync.RWMutex
	agents   []Agent
	index    map[string]int // agentID -> position in agents
	tasks    []Task
	log      *eventLog
	silenced map[string]bool

	// Restored by Reset.
	initialAgents []Agent
	initialTasks  []Task

	neverStop     bool
	emergencyStop bool

	clock         clock.Clock
	bus           *event.Bus
	logger        *logging.Logger
	eventCapacity int
}

// NewModel validates f and builds a Model holding it as the initial
// configuration. Agents in the error state are forced to health 0 and
// agents without a LastSync are stamped with the current time.
func NewModel(f Fleet, opts ...Option) (*Model, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}

	m := &Model{
		neverStop:     true,
		clock:         clock.Real(),
		bus:           event.NewBus(),
		logger:        logging.NopLogger(),
		eventCapacity: DefaultEventCapacity,
		silenced:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("fleet")

	now := m.clock.Now()
	m.initialAgents = cloneAgents(f.Agents)
	for i := range m.initialAgents {
		normalize(&m.initialAgents[i])
		if m.initialAgents[i].Metrics.LastSync.IsZero() {
			m.initialAgents[i].Metrics.LastSync = now
		}
	}
	m.initialTasks = slices.Clone(f.Tasks)

	m.agents = cloneAgents(m.initialAgents)
	m.tasks = slices.Clone(m.initialTasks)
	m.reindex()

	m.log = newEventLog(m.eventCapacity)
	m.log.seed(f.Events)

	return m, nil
}

// Bus returns the bus that receives change notifications.
func (m *Model) Bus() *event.Bus {
	return m.bus
}

// Now returns the model's current time.
func (m *Model) Now() time.Time {
	return m.clock.Now()
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

// Snapshot returns a consistent copy of agents, tasks and flags.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		At:            m.clock.Now(),
		Agents:        cloneAgents(m.agents),
		Tasks:         slices.Clone(m.tasks),
		NeverStop:     m.neverStop,
		EmergencyStop: m.emergencyStop,
	}
}

// Agents returns a copy of every agent in fleet order.
func (m *Model) Agents() []Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAgents(m.agents)
}

// Agent returns a copy of one agent.
func (m *Model) Agent(id string) (Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		return Agent{}, errors.NewNotFoundError("agent", id)
	}
	return m.agents[i].clone(), nil
}

// Tasks returns a copy of every task.
func (m *Model) Tasks() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tasks)
}

// Task returns a copy of one task.
func (m *Model) Task(id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.taskIndex(id)
	if i < 0 {
		return Task{}, errors.NewNotFoundError("task", id)
	}
	return m.tasks[i], nil
}

// Events returns the resilience log, newest first.
func (m *Model) Events() []ResilienceEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log.snapshot()
}

// NeverStop reports whether autonomous recovery is enabled.
func (m *Model) NeverStop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.neverStop
}

// EmergencyStop reports whether the global emergency stop is engaged.
func (m *Model) EmergencyStop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emergencyStop
}

// -----------------------------------------------------------------------------
// Agent mutations
// -----------------------------------------------------------------------------

// UpdateAgent applies fn to one agent. Health is clamped to [0,100] and an
// agent left in the error state has its health forced to 0.
func (m *Model) UpdateAgent(id, cause string, fn func(*Agent)) (Agent, error) {
	m.mu.Lock()
	i, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return Agent{}, errors.NewNotFoundError("agent", id)
	}
	fn(&m.agents[i])
	normalize(&m.agents[i])
	updated := m.agents[i].clone()
	now := m.clock.Now()
	m.mu.Unlock()

	m.bus.Publish(event.NewAgentChangedEvent(now, cause, id))
	return updated, nil
}

// UpdateAgents applies fn to every agent and returns the ids for which fn
// reported a change. The whole pass happens under one lock.
func (m *Model) UpdateAgents(cause string, fn func(*Agent) bool) []string {
	m.mu.Lock()
	var changed []string
	for i := range m.agents {
		if fn(&m.agents[i]) {
			normalize(&m.agents[i])
			changed = append(changed, m.agents[i].ID)
		}
	}
	now := m.clock.Now()
	m.mu.Unlock()

	if len(changed) > 0 {
		m.bus.Publish(event.NewAgentChangedEvent(now, cause, changed...))
	}
	return changed
}

// Heartbeat refreshes an agent's LastSync. Silenced agents are ignored.
func (m *Model) Heartbeat(id string) error {
	m.mu.Lock()
	i, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("agent", id)
	}
	if m.silenced[id] {
		m.mu.Unlock()
		return nil
	}
	now := m.clock.Now()
	m.agents[i].Metrics.LastSync = now
	m.mu.Unlock()

	m.bus.Publish(event.NewAgentChangedEvent(now, CauseHeartbeat, id))
	return nil
}

// HeartbeatAll refreshes LastSync for every agent that is neither in the
// error state nor silenced, and returns how many were refreshed.
func (m *Model) HeartbeatAll() int {
	m.mu.Lock()
	now := m.clock.Now()
	var ids []string
	for i := range m.agents {
		a := &m.agents[i]
		if a.Status == StatusError || m.silenced[a.ID] {
			continue
		}
		a.Metrics.LastSync = now
		ids = append(ids, a.ID)
	}
	m.mu.Unlock()

	if len(ids) > 0 {
		m.bus.Publish(event.NewAgentChangedEvent(now, CauseHeartbeat, ids...))
	}
	return len(ids)
}

// SetHeartbeatSilenced stops (or resumes) heartbeats for an agent.
func (m *Model) SetHeartbeatSilenced(id string, silenced bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[id]; !ok {
		return errors.NewNotFoundError("agent", id)
	}
	if silenced {
		m.silenced[id] = true
	} else {
		delete(m.silenced, id)
	}
	return nil
}

// HeartbeatSilenced reports whether heartbeats for id are suppressed.
func (m *Model) HeartbeatSilenced(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.silenced[id]
}

// -----------------------------------------------------------------------------
// Task mutations
// -----------------------------------------------------------------------------

// Migration moves a task to a new agent.
type Migration struct {
	TaskID string
	From   string
	To     string
	Reason string

	// MinHealth is the health the target must still exceed.
	MinHealth float64

	// ReleaseSource returns the source agent to idle.
	ReleaseSource bool
}

// Migrate applies m as a single step: the task's assignee, the target's
// busy status and the optional release of the source agent change together.
// The target must still be idle with health above MinHealth, otherwise
// ErrTargetUnavailable is returned and nothing changes.
func (m *Model) Migrate(mg Migration) error {
	m.mu.Lock()
	ti := m.taskIndex(mg.TaskID)
	if ti < 0 {
		m.mu.Unlock()
		return errors.NewNotFoundError("task", mg.TaskID)
	}
	to, ok := m.index[mg.To]
	if !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("agent", mg.To)
	}
	if target := m.agents[to]; target.Status != StatusIdle || target.HealthScore <= mg.MinHealth {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s is %s with health %.0f",
			errors.ErrTargetUnavailable, mg.To, target.Status, target.HealthScore)
	}

	m.tasks[ti].AssignedTo = mg.To
	m.agents[to].Status = StatusBusy
	touched := []string{mg.To}
	if from, ok := m.index[mg.From]; ok && mg.ReleaseSource && mg.From != mg.To {
		m.agents[from].Status = StatusIdle
		touched = append(touched, mg.From)
	}
	now := m.clock.Now()
	m.mu.Unlock()

	m.bus.Publish(event.NewTaskReassignedEvent(now, mg.TaskID, mg.From, mg.To, mg.Reason))
	m.bus.Publish(event.NewAgentChangedEvent(now, CauseMigration, touched...))
	return nil
}

// AssignWorkload replaces the whole task set and marks every agent busy.
// Every task must be assigned to a known agent.
func (m *Model) AssignWorkload(tasks []Task, workflowID string) error {
	m.mu.Lock()
	for _, t := range tasks {
		if _, ok := m.index[t.AssignedTo]; !ok {
			m.mu.Unlock()
			return errors.NewNotFoundError("agent", t.AssignedTo)
		}
	}
	m.tasks = slices.Clone(tasks)
	ids := make([]string, len(m.agents))
	for i := range m.agents {
		m.agents[i].Status = StatusBusy
		ids[i] = m.agents[i].ID
	}
	now := m.clock.Now()
	m.mu.Unlock()

	m.bus.Publish(event.NewTasksReplacedEvent(now, len(tasks), workflowID))
	m.bus.Publish(event.NewAgentChangedEvent(now, CauseWorkflow, ids...))
	return nil
}

// Reset restores the initial agents and tasks. Every agent's LastSync is
// refreshed so the restored fleet is not immediately stale, and all
// heartbeat silences are lifted. The resilience log and flags are kept.
func (m *Model) Reset() {
	m.mu.Lock()
	now := m.clock.Now()
	m.agents = cloneAgents(m.initialAgents)
	for i := range m.agents {
		m.agents[i].Metrics.LastSync = now
	}
	m.tasks = slices.Clone(m.initialTasks)
	m.reindex()
	clear(m.silenced)
	agents, tasks := len(m.agents), len(m.tasks)
	m.mu.Unlock()

	m.logger.Debug("fleet reset", "agents", agents, "tasks", tasks)
	m.bus.Publish(event.NewFleetResetEvent(now, agents, tasks))
}

// -----------------------------------------------------------------------------
// Resilience log and flags
// -----------------------------------------------------------------------------

// RecordEvent appends a resilience event stamped with the current time and
// returns it with its id.
func (m *Model) RecordEvent(typ EventType, target, details string, severity Severity) ResilienceEvent {
	m.mu.Lock()
	e := m.log.append(ResilienceEvent{
		Timestamp:     m.clock.Now(),
		Type:          typ,
		TargetAgentID: target,
		Details:       details,
		Severity:      severity,
	})
	m.mu.Unlock()

	m.bus.Publish(event.NewResilienceRecordedEvent(
		e.Timestamp, e.ID, string(e.Type), e.TargetAgentID, e.Details, string(e.Severity),
	))
	return e
}

// SetNeverStop enables or disables autonomous recovery and reports whether
// the flag changed.
func (m *Model) SetNeverStop(enabled bool) bool {
	m.mu.Lock()
	changed := m.neverStop != enabled
	m.neverStop = enabled
	now := m.clock.Now()
	m.mu.Unlock()

	if changed {
		m.logger.Info("never-stop changed", "enabled", enabled)
		m.bus.Publish(event.NewNeverStopEvent(now, enabled))
	}
	return changed
}

// ToggleEmergencyStop flips the emergency stop and returns the new state.
func (m *Model) ToggleEmergencyStop() bool {
	m.mu.Lock()
	m.emergencyStop = !m.emergencyStop
	engaged := m.emergencyStop
	now := m.clock.Now()
	m.mu.Unlock()

	m.logger.Info("emergency stop toggled", "engaged", engaged)
	m.bus.Publish(event.NewEmergencyStopEvent(now, engaged))
	return engaged
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// reindex rebuilds the agent index. Caller must hold mu.
func (m *Model) reindex() {
	m.index = make(map[string]int, len(m.agents))
	for i, a := range m.agents {
		m.index[a.ID] = i
	}
}

// taskIndex returns the position of a task or -1. Caller must hold mu.
func (m *Model) taskIndex(id string) int {
	return slices.IndexFunc(m.tasks, func(t Task) bool { return t.ID == id })
}

func normalize(a *Agent) {
	a.HealthScore = min(max(a.HealthScore, 0), 100)
	if a.Status == StatusError {
		a.HealthScore = 0
	}
}

func cloneAgents(agents []Agent) []Agent {
	out := make([]Agent, len(agents))
	for i, a := range agents {
		out[i] = a.clone()
	}
	return out
}
