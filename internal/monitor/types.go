package monitor

import (
	"github.com/oeoc/neverstop/internal/fleet"
	"github.com/oeoc/neverstop/internal/recovery"
)

// Detection is an anomalous agent that still holds a task.
type Detection struct {
	Reason  fleet.Reason
	AgentID string
	Task    fleet.Task

	// Accepted reports whether the submitter took the submission. It is
	// only meaningful on detections passed to OnDetection handlers.
	Accepted bool
}

// Submission converts d into a recovery submission.
func (d Detection) Submission() recovery.Submission {
	return recovery.Submission{Task: d.Task, FailedAgentID: d.AgentID, Reason: d.Reason}
}

// Submitter accepts recovery submissions. *recovery.Coordinator
// implements it.
type Submitter interface {
	Submit(recovery.Submission) bool
}
