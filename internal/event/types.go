package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier.
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeAgentChanged       = "agent.changed"
	TypeTaskReassigned     = "task.reassigned"
	TypeTasksReplaced      = "tasks.replaced"
	TypeFleetReset         = "fleet.reset"
	TypeResilienceRecorded = "resilience.recorded"
	TypeEmergencyStop      = "control.emergency_stop"
	TypeNeverStop          = "control.never_stop"
	TypeWorkflowProgress   = "workflow.progress"
	TypeRecoveryThinking   = "recovery.thinking"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string, at time.Time) baseEvent {
	return baseEvent{eventType: eventType, timestamp: at}
}

// -----------------------------------------------------------------------------
// Fleet Events
// -----------------------------------------------------------------------------

// AgentChangedEvent is emitted after one or more agents were mutated.
type AgentChangedEvent struct {
	baseEvent
	AgentIDs []string // Agents touched by the mutation
	Cause    string   // What changed them (fault, recover, stress, migration, heartbeat, workflow)
}

// NewAgentChangedEvent creates an AgentChangedEvent.
func NewAgentChangedEvent(at time.Time, cause string, agentIDs ...string) AgentChangedEvent {
	return AgentChangedEvent{
		baseEvent: newBaseEvent(TypeAgentChanged, at),
		AgentIDs:  agentIDs,
		Cause:     cause,
	}
}

// TaskReassignedEvent is emitted when a migration moved a task.
type TaskReassignedEvent struct {
	baseEvent
	TaskID    string
	FromAgent string
	ToAgent   string
	Reason    string // STALE, FAILURE or DEGRADED
}

// NewTaskReassignedEvent creates a TaskReassignedEvent.
func NewTaskReassignedEvent(at time.Time, taskID, from, to, reason string) TaskReassignedEvent {
	return TaskReassignedEvent{
		baseEvent: newBaseEvent(TypeTaskReassigned, at),
		TaskID:    taskID,
		FromAgent: from,
		ToAgent:   to,
		Reason:    reason,
	}
}

// TasksReplacedEvent is emitted when the whole task set was swapped out.
type TasksReplacedEvent struct {
	baseEvent
	Count      int
	WorkflowID string
}

// NewTasksReplacedEvent creates a TasksReplacedEvent.
func NewTasksReplacedEvent(at time.Time, count int, workflowID string) TasksReplacedEvent {
	return TasksReplacedEvent{
		baseEvent:  newBaseEvent(TypeTasksReplaced, at),
		Count:      count,
		WorkflowID: workflowID,
	}
}

// FleetResetEvent is emitted when agents and tasks return to their initial configuration.
type FleetResetEvent struct {
	baseEvent
	Agents int
	Tasks  int
}

// NewFleetResetEvent creates a FleetResetEvent.
func NewFleetResetEvent(at time.Time, agents, tasks int) FleetResetEvent {
	return FleetResetEvent{
		baseEvent: newBaseEvent(TypeFleetReset, at),
		Agents:    agents,
		Tasks:     tasks,
	}
}

// -----------------------------------------------------------------------------
// Resilience Log
// -----------------------------------------------------------------------------

// ResilienceRecordedEvent mirrors an entry appended to the resilience log.
type ResilienceRecordedEvent struct {
	baseEvent
	ID            string
	Kind          string // HEARTBEAT_TIMEOUT, STRATEGY_APPLIED, ...
	TargetAgentID string
	Details       string
	Severity      string
}

// NewResilienceRecordedEvent creates a ResilienceRecordedEvent.
func NewResilienceRecordedEvent(at time.Time, id, kind, target, details, severity string) ResilienceRecordedEvent {
	return ResilienceRecordedEvent{
		baseEvent:     newBaseEvent(TypeResilienceRecorded, at),
		ID:            id,
		Kind:          kind,
		TargetAgentID: target,
		Details:       details,
		Severity:      severity,
	}
}

// -----------------------------------------------------------------------------
// Control Events
// -----------------------------------------------------------------------------

// EmergencyStopEvent is emitted when the global stop flag flips.
type EmergencyStopEvent struct {
	baseEvent
	Engaged bool
}

// NewEmergencyStopEvent creates an EmergencyStopEvent.
func NewEmergencyStopEvent(at time.Time, engaged bool) EmergencyStopEvent {
	return EmergencyStopEvent{baseEvent: newBaseEvent(TypeEmergencyStop, at), Engaged: engaged}
}

// NeverStopEvent is emitted when autonomous recovery is enabled or disabled.
type NeverStopEvent struct {
	baseEvent
	Enabled bool
}

// NewNeverStopEvent creates a NeverStopEvent.
func NewNeverStopEvent(at time.Time, enabled bool) NeverStopEvent {
	return NeverStopEvent{baseEvent: newBaseEvent(TypeNeverStop, at), Enabled: enabled}
}

// -----------------------------------------------------------------------------
// Workflow and Recovery Events
// -----------------------------------------------------------------------------

// WorkflowProgressEvent is emitted on every progress change of a swarm run.
// Progress 0 means the run finished and the fleet was reset.
type WorkflowProgressEvent struct {
	baseEvent
	RunID    string
	Progress int
}

// NewWorkflowProgressEvent creates a WorkflowProgressEvent.
func NewWorkflowProgressEvent(at time.Time, runID string, progress int) WorkflowProgressEvent {
	return WorkflowProgressEvent{
		baseEvent: newBaseEvent(TypeWorkflowProgress, at),
		RunID:     runID,
		Progress:  progress,
	}
}

// ThinkingEvent reports the coordinator's "thinking" indicator.
type ThinkingEvent struct {
	baseEvent
	Active    bool
	Reasoning string
}

// NewThinkingEvent creates a ThinkingEvent.
func NewThinkingEvent(at time.Time, active bool, reasoning string) ThinkingEvent {
	return ThinkingEvent{
		baseEvent: newBaseEvent(TypeRecoveryThinking, at),
		Active:    active,
		Reasoning: reasoning,
	}
}
