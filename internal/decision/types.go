package decision

import (
	"context"

	"github.com/oeoc/neverstop/internal/fleet"
)

// DefaultRationale is used when an answer names a target but gives no reason.
const DefaultRationale = "Optimal load migration to healthy node."

// Candidate is an agent eligible to receive the orphaned task.
type Candidate struct {
	ID             string
	HealthScore    float64
	CapabilityTags []string
}

// Request describes one orphaned task. Candidates are ranked best first.
type Request struct {
	ID            string
	FailedAgentID string
	Reason        fleet.Reason
	TaskLabel     string
	TaskPriority  fleet.Priority
	Candidates    []Candidate
}

// HasCandidate reports whether id is one of the request's candidates.
func (r Request) HasCandidate(id string) bool {
	for _, c := range r.Candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Decision is the chosen target and the reasoning behind it.
type Decision struct {
	TargetAgentID string
	Rationale     string
}

// Client picks a target agent for an orphaned task.
type Client interface {
	// Decide returns a target among req.Candidates. Failures are *Error.
	Decide(ctx context.Context, req Request) (Decision, error)
}
