package testutil

import (
	"context"
	"sync"

	"github.com/oeoc/neverstop/internal/decision"
)

// Reply is one scripted answer of a ScriptedClient.
type Reply struct {
	Decision decision.Decision
	Err      error
	// Panic makes Decide panic with this value.
	Panic any
}

// ScriptedClient is a decision.Client that answers from a script. When
// the script is exhausted it picks the first candidate.
type ScriptedClient struct {
	mu      sync.Mutex
	replies []Reply
	calls   []decision.Request

	// Gate, when set, makes Decide block until it receives or is closed.
	Gate chan struct{}
	// Entered receives each request as Decide starts, if set.
	Entered chan decision.Request
}

// NewScriptedClient returns a client that answers with replies in order.
func NewScriptedClient(replies ...Reply) *ScriptedClient {
	return &ScriptedClient{replies: replies}
}

// Decide implements decision.Client.
func (c *ScriptedClient) Decide(ctx context.Context, req decision.Request) (decision.Decision, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	var r Reply
	scripted := len(c.replies) > 0
	if scripted {
		r, c.replies = c.replies[0], c.replies[1:]
	}
	c.mu.Unlock()

	if c.Entered != nil {
		c.Entered <- req
	}
	if c.Gate != nil {
		select {
		case <-c.Gate:
		case <-ctx.Done():
			return decision.Decision{}, &decision.Error{Kind: decision.KindTransport, Backend: "scripted", Err: ctx.Err()}
		}
	}

	if r.Panic != nil {
		panic(r.Panic)
	}
	if !scripted && len(req.Candidates) > 0 {
		return decision.Decision{TargetAgentID: req.Candidates[0].ID, Rationale: "scripted default"}, nil
	}
	return r.Decision, r.Err
}

// Calls returns a copy of the requests received so far.
func (c *ScriptedClient) Calls() []decision.Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]decision.Request, len(c.calls))
	copy(out, c.calls)
	return out
}
