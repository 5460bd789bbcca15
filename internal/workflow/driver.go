package workflow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oeoc/neverstop/internal/clock"
	"github.com/oeoc/neverstop/internal/errors"
	"github.com/oeoc/neverstop/internal/event"
	"github.com/oeoc/neverstop/internal/fleet"
	"github.com/oeoc/neverstop/internal/logging"
)

// Defaults for a swarm run.
const (
	DefaultWorkflowID      = "wf-swarm-1"
	DefaultStepInterval    = 500 * time.Millisecond
	DefaultStepIncrement   = 1
	DefaultCompletionDelay = 3 * time.Second

	// Complete is the progress value that ends a run.
	Complete = 100

	highPriorityRate = 0.2
)

// Option configures a Driver.
type Option func(*Driver)

// WithClock sets the time source for steps and the completion delay.
func WithClock(c clock.Clock) Option {
	return func(d *Driver) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithStepInterval sets the time between progress steps.
func WithStepInterval(i time.Duration) Option {
	return func(d *Driver) { d.stepInterval = i }
}

// WithStepIncrement sets how much progress each step adds.
func WithStepIncrement(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.increment = n
		}
	}
}

// WithCompletionDelay sets the pause between reaching 100 and the reset.
func WithCompletionDelay(i time.Duration) Option {
	return func(d *Driver) { d.completionDelay = i }
}

// WithWorkflowID sets the workflow id stamped on generated tasks.
func WithWorkflowID(id string) Option {
	return func(d *Driver) {
		if id != "" {
			d.workflowID = id
		}
	}
}

// WithRand sets the random source used for task priorities.
func WithRand(r *rand.Rand) Option {
	return func(d *Driver) {
		if r != nil {
			d.rng = r
		}
	}
}

// Driver runs swarm workflows against a fleet model.
type Driver struct {
	model  *fleet.Model
	clock  clock.Clock
	logger *logging.Logger
	rng    *rand.Rand

	stepInterval    time.Duration
	increment       int
	completionDelay time.Duration
	workflowID      string

	mu       sync.Mutex
	progress int
	runID    string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Driver for model.
func New(model *fleet.Model, opts ...Option) *Driver {
	d := &Driver{
		model:           model,
		clock:           clock.Real(),
		logger:          logging.NopLogger(),
		rng:             rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		stepInterval:    DefaultStepInterval,
		increment:       DefaultStepIncrement,
		completionDelay: DefaultCompletionDelay,
		workflowID:      DefaultWorkflowID,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithComponent("workflow")
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d
}

// Start begins a swarm run and returns its run id. It fails with
// ErrWorkflowActive while a run is in progress and with ErrEmergencyStop
// while the emergency stop is engaged.
func (d *Driver) Start() (string, error) {
	if d.model.EmergencyStop() {
		return "", errors.ErrEmergencyStop
	}

	d.mu.Lock()
	if d.progress > 0 {
		d.mu.Unlock()
		return "", errors.ErrWorkflowActive
	}
	if err := d.ctx.Err(); err != nil {
		d.mu.Unlock()
		return "", err
	}
	runID := uuid.NewString()
	d.progress = 1
	d.runID = runID
	d.mu.Unlock()

	agents := d.model.Agents()
	tasks := make([]fleet.Task, len(agents))
	for i, a := range agents {
		tasks[i] = fleet.Task{
			ID:         fmt.Sprintf("task-swarm-%d", i),
			Label:      fmt.Sprintf("Site Analysis Node %d", i+1),
			AssignedTo: a.ID,
			Priority:   d.priority(),
			WorkflowID: d.workflowID,
		}
	}

	d.model.RecordEvent(fleet.EventReassignmentInitiated, fleet.TargetSwarm,
		fmt.Sprintf("Triggering High-Scale %d-Agent Site Inspection Workflow.", len(tasks)),
		fleet.SeverityMedium)
	if err := d.model.AssignWorkload(tasks, d.workflowID); err != nil {
		d.mu.Lock()
		d.progress, d.runID = 0, ""
		d.mu.Unlock()
		return "", fmt.Errorf("assigning swarm workload: %w", err)
	}

	d.logger.Info("swarm workflow started", "run_id", runID, "tasks", len(tasks))
	d.publish(runID, 1)

	d.wg.Go(func() { d.run(runID, len(tasks)) })
	return runID, nil
}

// RunID returns the id of the active run, empty when idle.
func (d *Driver) RunID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runID
}

func (d *Driver) priority() fleet.Priority {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rng.Float64() < highPriorityRate {
		return fleet.PriorityHigh
	}
	return fleet.PriorityMedium
}

// Progress returns the current progress, 0 when idle.
func (d *Driver) Progress() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress
}

// Active reports whether a run is in progress.
func (d *Driver) Active() bool {
	return d.Progress() > 0
}

// Close abandons a running workflow and waits for its goroutine.
func (d *Driver) Close() {
	d.cancel()
	d.wg.Wait()
}

func (d *Driver) run(runID string, agents int) {
	for {
		if d.Progress() >= Complete {
			break
		}
		select {
		case <-d.ctx.Done():
			return
		case <-d.clock.After(d.stepInterval):
		}
		if d.model.EmergencyStop() {
			continue
		}

		d.mu.Lock()
		d.progress = min(Complete, d.progress+d.increment)
		p := d.progress
		d.mu.Unlock()
		d.publish(runID, p)
	}

	select {
	case <-d.ctx.Done():
		return
	case <-d.clock.After(d.completionDelay):
	}

	d.model.Reset()
	d.model.RecordEvent(fleet.EventReassignmentComplete, fleet.TargetCluster,
		fmt.Sprintf("Full Swarm Workflow completed successfully. %d/%d agents reached Goal State.", agents, agents),
		fleet.SeverityLow)

	d.mu.Lock()
	d.progress = 0
	d.runID = ""
	d.mu.Unlock()

	d.logger.Info("swarm workflow complete", "run_id", runID)
	d.publish(runID, 0)
}

func (d *Driver) publish(runID string, progress int) {
	d.model.Bus().Publish(event.NewWorkflowProgressEvent(d.clock.Now(), runID, progress))
}
