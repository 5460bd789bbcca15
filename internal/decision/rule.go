package decision

import (
	"context"
	"fmt"
	"strings"
)

// RuleClient decides without calling out: the candidate whose capability
// tags appear most often in the task label wins, ties going to the higher
// ranked (healthier) candidate.
type RuleClient struct{}

// NewRuleClient creates a RuleClient.
func NewRuleClient() *RuleClient {
	return &RuleClient{}
}

// Decide implements Client.
func (RuleClient) Decide(ctx context.Context, req Request) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, classify(ctx, "rule", err)
	}
	if len(req.Candidates) == 0 {
		return Decision{}, parseError("rule", "no candidates")
	}

	label := strings.ToLower(req.TaskLabel)
	best, bestScore := 0, -1
	var matched []string
	for i, c := range req.Candidates {
		var hits []string
		for _, tag := range c.CapabilityTags {
			if tag != "" && strings.Contains(label, strings.ToLower(tag)) {
				hits = append(hits, tag)
			}
		}
		if len(hits) > bestScore {
			best, bestScore, matched = i, len(hits), hits
		}
	}

	c := req.Candidates[best]
	rationale := fmt.Sprintf("%s has the highest health (%.0f%%) among standby nodes.", c.ID, c.HealthScore)
	if len(matched) > 0 {
		rationale = fmt.Sprintf("%s matches [%s] for %q at %.0f%% health.",
			c.ID, strings.Join(matched, ", "), req.TaskLabel, c.HealthScore)
	}
	return Decision{TargetAgentID: c.ID, Rationale: rationale}, nil
}
