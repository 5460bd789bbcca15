package recovery

import (
	"slices"

	"github.com/oeoc/neverstop/internal/decision"
	"github.com/oeoc/neverstop/internal/fleet"
)

// Default candidate policy.
const (
	DefaultMinCandidateHealth = 75
	DefaultMaxCandidates      = 5
)

// SelectCandidates returns the idle agents with health strictly above
// minHealth, healthiest first, at most limit of them. Ties keep fleet
// order. The failed agent itself is never a candidate.
func SelectCandidates(agents []fleet.Agent, failedAgentID string, minHealth float64, limit int) []decision.Candidate {
	var eligible []fleet.Agent
	for _, a := range agents {
		if a.Status == fleet.StatusIdle && a.HealthScore > minHealth && a.ID != failedAgentID {
			eligible = append(eligible, a)
		}
	}

	slices.SortStableFunc(eligible, func(a, b fleet.Agent) int {
		switch {
		case a.HealthScore > b.HealthScore:
			return -1
		case a.HealthScore < b.HealthScore:
			return 1
		}
		return 0
	})

	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}

	out := make([]decision.Candidate, len(eligible))
	for i, a := range eligible {
		out[i] = decision.Candidate{
			ID:             a.ID,
			HealthScore:    a.HealthScore,
			CapabilityTags: slices.Clone(a.CapabilityTags),
		}
	}
	return out
}
