package fleet

import (
	"slices"
	"time"
)

// Status is the lifecycle state of an agent. The enumeration is shared with
// tasks and runs in the wider system; agents only use idle, busy, error,
// degraded and assigned.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusBusy       Status = "busy"
	StatusError      Status = "error"
	StatusDegraded   Status = "degraded"
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusWaiting    Status = "waiting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is part of the enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusBusy, StatusError, StatusDegraded, StatusPending,
		StatusAssigned, StatusInProgress, StatusWaiting, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// AgentType distinguishes reasoning agents from plain workers.
type AgentType string

const (
	AgentTypeAgentic AgentType = "agentic"
	AgentTypeWorker  AgentType = "worker"
)

// Valid reports whether t is a known agent type.
func (t AgentType) Valid() bool {
	return t == AgentTypeAgentic || t == AgentTypeWorker
}

// Priority is a task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Metrics are the runtime measurements reported by an agent.
type Metrics struct {
	LatencyMS     float64   `json:"latency_ms" yaml:"latency_ms"`
	ErrorRatePct  float64   `json:"error_rate_pct" yaml:"error_rate_pct"`
	MemoryPct     float64   `json:"memory_pct" yaml:"memory_pct"`
	CPUPct        float64   `json:"cpu_pct" yaml:"cpu_pct"`
	UptimeSeconds int64     `json:"uptime_seconds" yaml:"uptime_seconds"`
	LastSync      time.Time `json:"last_sync" yaml:"last_sync,omitempty"`
}

// Agent is a simulated worker unit.
type Agent struct {
	ID             string    `json:"id" yaml:"id"`
	OrchestratorID string    `json:"orchestrator_id" yaml:"orchestrator_id"`
	Type           AgentType `json:"type" yaml:"type"`
	Status         Status    `json:"status" yaml:"status"`
	CapabilityTags []string  `json:"capability_tags" yaml:"capability_tags"`
	HealthScore    float64   `json:"health_score" yaml:"health_score"`
	Metrics        Metrics   `json:"metrics" yaml:"metrics"`
}

// clone returns a copy that shares no slices with a.
func (a Agent) clone() Agent {
	a.CapabilityTags = slices.Clone(a.CapabilityTags)
	return a
}

// Task is a unit of work with exactly one assignee.
type Task struct {
	ID         string   `json:"id" yaml:"id"`
	Label      string   `json:"label" yaml:"label"`
	AssignedTo string   `json:"assigned_to" yaml:"assigned_to"`
	Priority   Priority `json:"priority" yaml:"priority"`
	WorkflowID string   `json:"workflow_id" yaml:"workflow_id"`
}

// EventType classifies a resilience event.
type EventType string

const (
	EventHeartbeatTimeout      EventType = "HEARTBEAT_TIMEOUT"
	EventFaultDetected         EventType = "FAULT_DETECTED"
	EventStrategyApplied       EventType = "STRATEGY_APPLIED"
	EventReassignmentInitiated EventType = "REASSIGNMENT_INITIATED"
	EventReassignmentComplete  EventType = "REASSIGNMENT_COMPLETE"
	EventProactiveThrottling   EventType = "PROACTIVE_THROTTLING"
	EventDiagnosticFailure     EventType = "DIAGNOSTIC_FAILURE"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventHeartbeatTimeout, EventFaultDetected, EventStrategyApplied, EventReassignmentInitiated,
		EventReassignmentComplete, EventProactiveThrottling, EventDiagnosticFailure:
		return true
	}
	return false
}

// Severity is the operator-facing weight of a resilience event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Pseudo agent ids used as event targets when no single agent applies.
const (
	TargetSystem  = "SYSTEM"
	TargetManager = "AI_MANAGER"
	TargetSwarm   = "SWARM"
	TargetCluster = "CLUSTER"
)

// ResilienceEvent is an immutable entry in the resilience log.
type ResilienceEvent struct {
	ID            string    `json:"id" yaml:"id"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	Type          EventType `json:"type" yaml:"type"`
	TargetAgentID string    `json:"target_agent_id" yaml:"target_agent_id"`
	Details       string    `json:"details" yaml:"details"`
	Severity      Severity  `json:"severity" yaml:"severity"`
}

// Fleet is an initial fleet configuration.
type Fleet struct {
	Agents []Agent           `yaml:"agents"`
	Tasks  []Task            `yaml:"tasks"`
	Events []ResilienceEvent `yaml:"events,omitempty"`
}

// Snapshot is a consistent copy of the model taken under one lock.
type Snapshot struct {
	At            time.Time
	Agents        []Agent
	Tasks         []Task
	NeverStop     bool
	EmergencyStop bool
}

// TaskFor returns the first task assigned to agentID.
func (s Snapshot) TaskFor(agentID string) (Task, bool) {
	for _, t := range s.Tasks {
		if t.AssignedTo == agentID {
			return t, true
		}
	}
	return Task{}, false
}

// Reason is why a task was handed to recovery.
type Reason string

const (
	ReasonStale    Reason = "STALE"
	ReasonFailure  Reason = "FAILURE"
	ReasonDegraded Reason = "DEGRADED"
)

// Text returns the operator-facing description of the reason.
func (r Reason) Text() string {
	switch r {
	case ReasonFailure:
		return "Hardware Failure"
	case ReasonStale:
		return "Heartbeat Timeout"
	default:
		return "Proactive Re-balancing"
	}
}
