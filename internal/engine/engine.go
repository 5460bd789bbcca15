package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/oeoc/neverstop/internal/chaos"
	"github.com/oeoc/neverstop/internal/clock"
	"github.com/oeoc/neverstop/internal/config"
	"github.com/oeoc/neverstop/internal/decision"
	"github.com/oeoc/neverstop/internal/fleet"
	"github.com/oeoc/neverstop/internal/logging"
	"github.com/oeoc/neverstop/internal/monitor"
	"github.com/oeoc/neverstop/internal/recovery"
	"github.com/oeoc/neverstop/internal/relay"
	"github.com/oeoc/neverstop/internal/workflow"
)

// ClientName identifies the engine to the NATS server.
const ClientName = "neverstop"

// Stats counts finished recoveries since the engine was built.
type Stats struct {
	Migrated int64
	Aborted  int64
}

// Engine bundles the components of one continuity engine.
type Engine struct {
	cfg    *config.Config
	clock  clock.Clock
	logger *logging.Logger

	model       *fleet.Model
	client      decision.Client
	coordinator *recovery.Coordinator
	policy      *monitor.Policy
	monitor     *monitor.Monitor
	workflow    *workflow.Driver
	chaos       *chaos.Surface
	heartbeat   *fleet.HeartbeatPump
	relay       *relay.Relay
	conn        *nats.Conn

	migrated atomic.Int64
	aborted  atomic.Int64

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an engine from cfg. A nil cfg uses config.Default.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &options{
		clock:  clock.Real(),
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		cfg:    cfg,
		clock:  o.clock,
		logger: o.logger.WithComponent("engine"),
	}

	seed := cfg.Fleet.Seed
	if seed == 0 {
		seed = uint64(o.clock.Now().UnixNano())
	}

	f, err := e.loadFleet(o.fleet, seed)
	if err != nil {
		return nil, err
	}

	e.model, err = fleet.NewModel(f,
		fleet.WithClock(o.clock),
		fleet.WithLogger(o.logger),
		fleet.WithEventCapacity(cfg.Fleet.EventCapacity),
		fleet.WithNeverStop(cfg.Monitor.NeverStop),
	)
	if err != nil {
		return nil, fmt.Errorf("building fleet model: %w", err)
	}

	e.client = o.client
	if e.client == nil {
		e.client, err = decision.New(cfg.DecisionSettings(), o.logger)
		if err != nil {
			return nil, fmt.Errorf("building decision client: %w", err)
		}
	}

	e.coordinator = recovery.NewCoordinator(e.model, e.client,
		recovery.WithClock(o.clock),
		recovery.WithLogger(o.logger),
		recovery.WithMinCandidateHealth(cfg.Recovery.MinCandidateHealth),
		recovery.WithMaxCandidates(cfg.Recovery.MaxCandidates),
		recovery.WithMigrationDelay(cfg.Recovery.MigrationDelay),
		recovery.WithResultHandler(e.countResult),
	)

	e.policy = monitor.NewPolicy(
		monitor.WithStaleAfter(cfg.Monitor.StaleAfter),
		monitor.WithDegradedThreshold(cfg.Monitor.DegradedHealthThreshold),
	)
	e.monitor = monitor.New(e.model, e.coordinator, e.policy,
		monitor.WithInterval(cfg.Monitor.Interval),
		monitor.WithClock(o.clock),
		monitor.WithLogger(o.logger),
	)

	// rand.Rand is not safe for concurrent use, so each consumer gets its own stream.
	e.workflow = workflow.New(e.model,
		workflow.WithClock(o.clock),
		workflow.WithLogger(o.logger),
		workflow.WithStepInterval(cfg.Workflow.StepInterval),
		workflow.WithStepIncrement(cfg.Workflow.StepIncrement),
		workflow.WithCompletionDelay(cfg.Workflow.CompletionDelay),
		workflow.WithWorkflowID(cfg.Workflow.WorkflowID),
		workflow.WithRand(rand.New(rand.NewPCG(seed, 2))),
	)
	e.chaos = chaos.New(e.model,
		chaos.WithLogger(o.logger),
		chaos.WithRand(rand.New(rand.NewPCG(seed, 3))),
	)
	e.heartbeat = fleet.NewHeartbeatPump(e.model, o.clock, cfg.Fleet.HeartbeatInterval)

	if cfg.Relay.Enabled {
		if err := e.buildRelay(o.publisher, o.logger); err != nil {
			e.coordinator.Close()
			return nil, err
		}
	}

	return e, nil
}

func (e *Engine) loadFleet(override *fleet.Fleet, seed uint64) (fleet.Fleet, error) {
	switch {
	case override != nil:
		return *override, nil
	case e.cfg.Fleet.File != "":
		f, err := fleet.LoadFile(e.cfg.Fleet.File)
		if err != nil {
			return fleet.Fleet{}, err
		}
		e.logger.Info("fleet loaded", "file", e.cfg.Fleet.File, "agents", len(f.Agents), "tasks", len(f.Tasks))
		return f, nil
	default:
		rng := rand.New(rand.NewPCG(seed, 1))
		f := fleet.SeedFleet(e.cfg.Fleet.Agents, rng, e.clock.Now())
		e.logger.Info("fleet seeded", "seed", seed, "agents", len(f.Agents), "tasks", len(f.Tasks))
		return f, nil
	}
}

func (e *Engine) buildRelay(pub relay.Publisher, logger *logging.Logger) error {
	enc, err := relay.ParseEncoding(e.cfg.Relay.Encoding)
	if err != nil {
		return err
	}

	if pub == nil {
		conn, err := relay.Dial(e.cfg.Relay.URL, ClientName, logger)
		if err != nil {
			return fmt.Errorf("connecting relay to %s: %w", e.cfg.Relay.URL, err)
		}
		e.conn = conn
		pub = conn
	}

	e.relay = relay.New(pub,
		relay.WithSubject(e.cfg.Relay.Subject),
		relay.WithEncoding(enc),
		relay.WithLogger(logger),
	)
	return nil
}

func (e *Engine) countResult(r recovery.Result) {
	if r.Outcome == recovery.OutcomeMigrated {
		e.migrated.Add(1)
		return
	}
	e.aborted.Add(1)
}

// Start launches the monitor loop and the heartbeat pump and attaches the
// relay. It returns immediately.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return fmt.Errorf("engine: stopped")
	}
	if e.started {
		return fmt.Errorf("engine: already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.started = true

	if e.relay != nil {
		e.relay.Attach(e.model.Bus())
	}
	e.wg.Go(func() { e.monitor.Start(ctx) })
	e.wg.Go(func() { e.heartbeat.Run(ctx) })

	e.logger.Info("engine started",
		"agents", len(e.model.Agents()),
		"never_stop", e.model.NeverStop(),
		"relay", e.relay != nil,
	)
	return nil
}

// Stop shuts every component down and waits for background work. In-flight
// recoveries and a running workflow are interrupted. It is safe to call
// multiple times.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()

	e.workflow.Close()
	e.coordinator.Close()

	if e.relay != nil {
		e.relay.Detach()
	}
	if e.conn != nil {
		if err := e.conn.Drain(); err != nil {
			e.logger.Warn("relay drain failed", "error", err)
		}
	}

	stats := e.Stats()
	e.logger.Info("engine stopped", "migrated", stats.Migrated, "aborted", stats.Aborted)
}

// ApplyConfig re-applies the settings that can change while running: the
// Never-Stop flag and the monitor thresholds.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.policy.Update(cfg.Monitor.StaleAfter, cfg.Monitor.DegradedHealthThreshold)
	e.chaos.SetNeverStop(cfg.Monitor.NeverStop)
	e.logger.Info("configuration applied",
		"never_stop", cfg.Monitor.NeverStop,
		"stale_after", cfg.Monitor.StaleAfter,
		"degraded_threshold", cfg.Monitor.DegradedHealthThreshold,
	)
}

// Stats returns the recovery counters.
func (e *Engine) Stats() Stats {
	return Stats{Migrated: e.migrated.Load(), Aborted: e.aborted.Load()}
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.cfg }

// Model returns the fleet model.
func (e *Engine) Model() *fleet.Model { return e.model }

// Coordinator returns the recovery coordinator.
func (e *Engine) Coordinator() *recovery.Coordinator { return e.coordinator }

// Monitor returns the continuity monitor.
func (e *Engine) Monitor() *monitor.Monitor { return e.monitor }

// Workflow returns the swarm workflow driver.
func (e *Engine) Workflow() *workflow.Driver { return e.workflow }

// Chaos returns the operator control surface.
func (e *Engine) Chaos() *chaos.Surface { return e.chaos }

// Relay returns the event relay, or nil when it is disabled.
func (e *Engine) Relay() *relay.Relay { return e.relay }
