package fleet

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultAgentCount is the size of the demo fleet.
const DefaultAgentCount = 50

// SeedFleet generates the demo fleet: agents agent-1..agent-n spread over
// five orchestrators, the four standing tasks (those whose assignee exists)
// and four historical resilience events.
//
// Every tenth agent is agentic. Every fifteenth starts degraded with health
// between 45 and 65. The rest are busy (20%), in error (about 1%) or idle,
// with health between 85 and 100.
func SeedFleet(n int, rng *rand.Rand, now time.Time) Fleet {
	if n <= 0 {
		n = DefaultAgentCount
	}

	agents := make([]Agent, n)
	for i := range n {
		agents[i] = seedAgent(i, rng, now)
	}

	known := make(map[string]bool, n)
	for _, a := range agents {
		known[a.ID] = true
	}
	var tasks []Task
	for _, t := range standingTasks() {
		if known[t.AssignedTo] {
			tasks = append(tasks, t)
		}
	}

	return Fleet{
		Agents: agents,
		Tasks:  tasks,
		Events: historicalEvents(now),
	}
}

func seedAgent(i int, rng *rand.Rand, now time.Time) Agent {
	degraded := i%15 == 0

	a := Agent{
		ID:             fmt.Sprintf("agent-%d", i+1),
		OrchestratorID: fmt.Sprintf("o%d", i%5+1),
		Type:           AgentTypeWorker,
		CapabilityTags: []string{"Search", "Vision", "Calc"},
		Metrics: Metrics{
			MemoryPct:     30 + rng.Float64()*40,
			CPUPct:        20 + rng.Float64()*60,
			UptimeSeconds: rng.Int64N(86400),
			LastSync:      now,
		},
	}
	if i%10 == 0 {
		a.Type = AgentTypeAgentic
	}
	if i%3 == 0 {
		a.CapabilityTags = []string{"OCR", "PDF"}
	}

	switch {
	case degraded:
		a.Status = StatusDegraded
		a.HealthScore = 45 + rng.Float64()*20
		a.Metrics.LatencyMS = 450 + rng.Float64()*500
		a.Metrics.ErrorRatePct = 5 + rng.Float64()*10
	default:
		a.Status = StatusIdle
		if rng.Float64() > 0.8 {
			a.Status = StatusBusy
		} else if rng.Float64() > 0.95 {
			a.Status = StatusError
		}
		a.HealthScore = 85 + rng.Float64()*15
		a.Metrics.LatencyMS = 40 + rng.Float64()*100
		a.Metrics.ErrorRatePct = 0.1 + rng.Float64()*0.5
	}

	normalize(&a)
	return a
}

func standingTasks() []Task {
	return []Task{
		{ID: "tsk-101", Label: "Safety Image Batch #44", AssignedTo: "agent-12", Priority: PriorityHigh, WorkflowID: "wf1"},
		{ID: "tsk-102", Label: "OSHA Compliance OCR", AssignedTo: "agent-7", Priority: PriorityMedium, WorkflowID: "wf1"},
		{ID: "tsk-103", Label: "Resource Procurement PDF", AssignedTo: "agent-44", Priority: PriorityHigh, WorkflowID: "wf2"},
		{ID: "tsk-104", Label: "Site Map Vectorization", AssignedTo: "agent-3", Priority: PriorityLow, WorkflowID: "wf3"},
	}
}

// historicalEvents returns the log's starting entries, newest first.
func historicalEvents(now time.Time) []ResilienceEvent {
	at := func(ago time.Duration) time.Time { return now.Add(-ago) }
	return []ResilienceEvent{
		{
			Timestamp:     at(5 * time.Minute),
			Type:          EventProactiveThrottling,
			TargetAgentID: "agent-7",
			Details:       "Latency spike (820ms) detected. Diverting new tasks to standby nodes.",
			Severity:      SeverityMedium,
		},
		{
			Timestamp:     at(5*time.Minute + 5*time.Second),
			Type:          EventReassignmentComplete,
			TargetAgentID: "agent-12",
			Details:       "Task successfully re-assigned. Workflow continuity maintained.",
			Severity:      SeverityLow,
		},
		{
			Timestamp:     at(5*time.Minute + 8*time.Second),
			Type:          EventStrategyApplied,
			TargetAgentID: "agent-44",
			Details:       "Orphaned task detected: Site_Audit_Step_4. Searching for compatible agent...",
			Severity:      SeverityMedium,
		},
		{
			Timestamp:     at(5*time.Minute + 9*time.Second),
			Type:          EventHeartbeatTimeout,
			TargetAgentID: "agent-44",
			Details:       "No response for 30s. Triggering Never-Stop strategy.",
			Severity:      SeverityHigh,
		},
	}
}
