package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/oeoc/neverstop/internal/clock"
	"github.com/oeoc/neverstop/internal/decision"
	"github.com/oeoc/neverstop/internal/errors"
	"github.com/oeoc/neverstop/internal/event"
	"github.com/oeoc/neverstop/internal/fleet"
	"github.com/oeoc/neverstop/internal/logging"
)

// DefaultMigrationDelay simulates moving work state to the target.
const DefaultMigrationDelay = 1200 * time.Millisecond

// ErrClosed is returned for submissions after Close.
var ErrClosed = errors.New("coordinator closed")

// Submission asks for one orphaned task to be moved off a failed agent.
type Submission struct {
	Task          fleet.Task
	FailedAgentID string
	Reason        fleet.Reason
}

// Outcome is how an accepted recovery ended.
type Outcome string

const (
	OutcomeMigrated        Outcome = "migrated"
	OutcomeExhausted       Outcome = "resource_exhaustion"
	OutcomeDecisionFailed  Outcome = "decision_failed"
	OutcomeMigrationFailed Outcome = "migration_failed"
)

// Result describes a finished recovery.
type Result struct {
	Submission
	Outcome       Outcome
	TargetAgentID string
	Rationale     string
	// Fallback is set when the decision answer was unusable and the top
	// candidate was chosen instead.
	Fallback bool
	Err      error
}

// Thinking mirrors the coordinator's "thinking" indicator.
type Thinking struct {
	Active    bool
	Reasoning string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the time source for the migration delay.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) {
		if c != nil {
			co.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(co *Coordinator) {
		if l != nil {
			co.logger = l
		}
	}
}

// WithMinCandidateHealth sets the health a candidate must exceed.
func WithMinCandidateHealth(h float64) Option {
	return func(co *Coordinator) { co.minHealth = h }
}

// WithMaxCandidates caps how many candidates the decision client sees.
func WithMaxCandidates(n int) Option {
	return func(co *Coordinator) { co.maxCandidates = n }
}

// WithMigrationDelay sets the simulated migration time.
func WithMigrationDelay(d time.Duration) Option {
	return func(co *Coordinator) { co.migrationDelay = d }
}

// WithResultHandler registers a callback invoked once per accepted
// submission, after its final event is recorded and its guard released.
func WithResultHandler(fn func(Result)) Option {
	return func(co *Coordinator) { co.handlers = append(co.handlers, fn) }
}

// Coordinator serializes recoveries per task and applies migrations.
type Coordinator struct {
	model  *fleet.Model
	client decision.Client
	clock  clock.Clock
	logger *logging.Logger

	minHealth      float64
	maxCandidates  int
	migrationDelay time.Duration
	handlers       []func(Result)

	// notifyMu orders thinking notifications with the state changes that
	// produced them. It is taken before mu.
	notifyMu  sync.Mutex
	mu        sync.Mutex
	inFlight  map[string]string // taskID -> failed agent
	reasoning string
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator creates a Coordinator for model using client to decide.
func NewCoordinator(model *fleet.Model, client decision.Client, opts ...Option) *Coordinator {
	c := &Coordinator{
		model:          model,
		client:         client,
		clock:          clock.Real(),
		logger:         logging.NopLogger(),
		minHealth:      DefaultMinCandidateHealth,
		maxCandidates:  DefaultMaxCandidates,
		migrationDelay: DefaultMigrationDelay,
		inFlight:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("recovery")
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Submit accepts s and runs its recovery in the background. It returns
// false when the submission was dropped: the emergency stop is engaged,
// the task already has a recovery in flight, or the coordinator is closed.
func (c *Coordinator) Submit(s Submission) bool {
	if err := c.acquire(s, true); err != nil {
		c.logger.Debug("submission dropped",
			"task_id", s.Task.ID, "agent_id", s.FailedAgentID, "reason", string(s.Reason), "cause", err)
		return false
	}
	go func() {
		defer c.wg.Done()
		c.run(c.ctx, s)
	}()
	return true
}

// Recover runs the recovery for s on the calling goroutine. Dropped
// submissions return ErrEmergencyStop, ErrRecoveryInFlight or ErrClosed.
// An aborted recovery returns its Result with Err set and a nil error.
func (c *Coordinator) Recover(ctx context.Context, s Submission) (Result, error) {
	if err := c.acquire(s, false); err != nil {
		return Result{}, err
	}
	return c.run(ctx, s), nil
}

// InFlight returns the ids of tasks with a recovery in progress.
func (c *Coordinator) InFlight() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.inFlight))
	for id := range c.inFlight {
		ids = append(ids, id)
	}
	return ids
}

// Thinking returns the current thinking indicator.
func (c *Coordinator) Thinking() Thinking {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Thinking{Active: len(c.inFlight) > 0, Reasoning: c.reasoning}
}

// Close refuses further submissions, cancels in-flight recoveries and
// waits for them to finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// acquire takes the in-flight guard for s.Task.ID. Background submissions
// are added to the wait group under the same lock that checks closed, so
// Close always waits for them.
func (c *Coordinator) acquire(s Submission, background bool) error {
	if c.model.EmergencyStop() {
		return errors.ErrEmergencyStop
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, busy := c.inFlight[s.Task.ID]; busy {
		c.mu.Unlock()
		return errors.ErrRecoveryInFlight
	}
	c.inFlight[s.Task.ID] = s.FailedAgentID
	if background {
		c.wg.Add(1)
	}
	c.reasoning = fmt.Sprintf("Manager: %s on %s. Analyzing site context...", s.Reason.Text(), s.FailedAgentID)
	thinking := Thinking{Active: true, Reasoning: c.reasoning}
	c.mu.Unlock()

	c.publishThinking(thinking)
	return nil
}

// release drops the guard for taskID and clears the indicator once no
// recovery remains.
func (c *Coordinator) release(taskID string) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	delete(c.inFlight, taskID)
	if len(c.inFlight) == 0 {
		c.reasoning = ""
	}
	thinking := Thinking{Active: len(c.inFlight) > 0, Reasoning: c.reasoning}
	c.mu.Unlock()

	c.publishThinking(thinking)
}

func (c *Coordinator) setReasoning(text string) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.reasoning = text
	thinking := Thinking{Active: len(c.inFlight) > 0, Reasoning: text}
	c.mu.Unlock()

	c.publishThinking(thinking)
}

func (c *Coordinator) publishThinking(t Thinking) {
	c.model.Bus().Publish(event.NewThinkingEvent(c.clock.Now(), t.Active, t.Reasoning))
}

// run executes an acquired submission, converting a panic into an aborted
// recovery. The guard is always released before handlers run.
func (c *Coordinator) run(ctx context.Context, s Submission) Result {
	var res Result
	var catcher panics.Catcher
	catcher.Try(func() { res = c.process(ctx, s) })

	if r := catcher.Recovered(); r != nil {
		c.logger.Error("recovery panicked", "task_id", s.Task.ID, "panic", r.Value, "stack", string(r.Stack))
		res = c.abort(s, OutcomeDecisionFailed, errors.NewRecoveryError("unknown exception", fmt.Errorf("%v", r.Value)))
	}
	c.release(s.Task.ID)

	for _, h := range c.handlers {
		h(res)
	}
	return res
}

func (c *Coordinator) process(ctx context.Context, s Submission) Result {
	log := c.logger.WithTask(s.Task.ID).WithAgent(s.FailedAgentID)
	started := c.clock.Now()

	initiated := fleet.EventReassignmentInitiated
	if s.Reason == fleet.ReasonStale {
		initiated = fleet.EventHeartbeatTimeout
	}
	c.model.RecordEvent(initiated, s.FailedAgentID,
		fmt.Sprintf("Never-Stop continuity engaged for task %q (%s). Source node: %s.", s.Task.Label, s.Reason.Text(), s.FailedAgentID),
		fleet.SeverityHigh)
	log.Info("recovery started", "reason", string(s.Reason))

	candidates := SelectCandidates(c.model.Agents(), s.FailedAgentID, c.minHealth, c.maxCandidates)
	if len(candidates) == 0 {
		log.Warn("no standby candidates")
		return c.abort(s, OutcomeExhausted, errors.NewRecoveryError("", errors.ErrResourceExhaustion))
	}

	req := decision.Request{
		ID:            uuid.NewString(),
		FailedAgentID: s.FailedAgentID,
		Reason:        s.Reason,
		TaskLabel:     s.Task.Label,
		TaskPriority:  s.Task.Priority,
		Candidates:    candidates,
	}
	d, err := c.client.Decide(ctx, req)
	fallback := false
	switch {
	case err == nil && req.HasCandidate(d.TargetAgentID):
	case err == nil, decision.IsParseFailure(err):
		log.Warn("unusable decision, using top candidate", "request_id", req.ID, "error", err, "target", d.TargetAgentID)
		d = decision.Decision{TargetAgentID: candidates[0].ID, Rationale: decision.DefaultRationale}
		fallback = true
	default:
		log.Error("decision failed", "request_id", req.ID, "error", err)
		return c.abort(s, OutcomeDecisionFailed, errors.NewRecoveryError("", err))
	}
	if d.Rationale == "" {
		d.Rationale = decision.DefaultRationale
	}

	c.setReasoning("Manager Decision: " + d.Rationale)
	c.model.RecordEvent(fleet.EventStrategyApplied, fleet.TargetManager, d.Rationale, fleet.SeverityMedium)

	select {
	case <-ctx.Done():
		return c.abort(s, OutcomeMigrationFailed, errors.NewRecoveryError("migration interrupted", ctx.Err()))
	case <-c.clock.After(c.migrationDelay):
	}

	err = c.model.Migrate(fleet.Migration{
		TaskID:        s.Task.ID,
		From:          s.FailedAgentID,
		To:            d.TargetAgentID,
		Reason:        string(s.Reason),
		MinHealth:     c.minHealth,
		ReleaseSource: s.Reason != fleet.ReasonFailure,
	})
	if err != nil {
		return c.abort(s, OutcomeMigrationFailed, errors.NewRecoveryError("migration failed", err))
	}

	elapsed := c.clock.Now().Sub(started)
	c.model.RecordEvent(fleet.EventReassignmentComplete, d.TargetAgentID,
		fmt.Sprintf("Task %q resumed on %s. Continuity restored in %.1fs.", s.Task.Label, d.TargetAgentID, elapsed.Seconds()),
		fleet.SeverityLow)
	log.Info("recovery complete", "target", d.TargetAgentID, "fallback", fallback, "elapsed", elapsed)

	return Result{
		Submission:    s,
		Outcome:       OutcomeMigrated,
		TargetAgentID: d.TargetAgentID,
		Rationale:     d.Rationale,
		Fallback:      fallback,
	}
}

// abort records the DIAGNOSTIC_FAILURE event for an accepted submission.
func (c *Coordinator) abort(s Submission, outcome Outcome, err *errors.RecoveryError) Result {
	err = err.WithTask(s.Task.ID).WithAgent(s.FailedAgentID).WithReason(string(s.Reason))
	c.model.RecordEvent(fleet.EventDiagnosticFailure, fleet.TargetSystem,
		fmt.Sprintf("Autonomous recovery aborted: %s.", err.Detail()), fleet.SeverityHigh)

	return Result{Submission: s, Outcome: outcome, Err: err}
}
