package decision

import (
	"fmt"
	"regexp"
	"strings"
)

const promptTemplate = `ROLE: Construction swarm manager responsible for workflow continuity.
SCENARIO: Node %s experienced %s.
ORPHANED TASK: %q (Priority: %s)

AVAILABLE NODES:
%s

DECISION CRITERIA:
1. Select the node with the best capability match for the task.
2. Prioritize high health scores.

OUTPUT FORMAT:
TARGET: [ID]
THOUGHT: [Logic]`

var (
	targetLine  = regexp.MustCompile(`(?i)TARGET:\s*([^\n\r]+)`)
	thoughtLine = regexp.MustCompile(`(?i)THOUGHT:\s*([^\n\r]+)`)
)

// BuildPrompt renders the request as a prompt for a generative model.
func BuildPrompt(req Request) string {
	var nodes strings.Builder
	for i, c := range req.Candidates {
		if i > 0 {
			nodes.WriteByte('\n')
		}
		fmt.Fprintf(&nodes, "- %s: Health %.0f%%, Tags: [%s]", c.ID, c.HealthScore, strings.Join(c.CapabilityTags, ", "))
	}
	return fmt.Sprintf(promptTemplate, req.FailedAgentID, req.Reason.Text(), req.TaskLabel, req.TaskPriority, nodes.String())
}

// ParseResponse extracts the decision from a model reply. A missing TARGET
// line, or a target that is not one of the candidates, is a KindParse
// error. A missing THOUGHT line yields DefaultRationale.
func ParseResponse(backend, text string, req Request) (Decision, error) {
	m := targetLine.FindStringSubmatch(text)
	if m == nil {
		return Decision{}, parseError(backend, "no TARGET line in response")
	}

	target := strings.Trim(strings.TrimSpace(m[1]), "[]`'\"* ")
	if !req.HasCandidate(target) {
		return Decision{}, parseError(backend, "target %q is not a candidate", target)
	}

	rationale := DefaultRationale
	if t := thoughtLine.FindStringSubmatch(text); t != nil {
		if s := strings.TrimSpace(t[1]); s != "" {
			rationale = s
		}
	}
	return Decision{TargetAgentID: target, Rationale: rationale}, nil
}
