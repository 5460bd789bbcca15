package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oeoc/neverstop/internal/config"
	"github.com/oeoc/neverstop/internal/engine"
	"github.com/oeoc/neverstop/internal/event"
	"github.com/oeoc/neverstop/internal/logging"
)

// runOptions holds the chaos actions requested on the command line.
type runOptions struct {
	fault    string
	cascade  bool
	stress   bool
	workflow bool
	duration time.Duration
	noColor  bool
}

func (o *runOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.fault, "fault", "", "inject a fault into agents whose id matches this glob (e.g. 'agent-1?')")
	flags.BoolVar(&o.cascade, "cascade", false, "fault five random healthy agents")
	flags.BoolVar(&o.stress, "stress", false, "push every healthy agent's latency and CPU up")
	flags.BoolVar(&o.workflow, "workflow", false, "start the swarm workflow")
	flags.DurationVar(&o.duration, "for", 0, "stop after this long (default: run until interrupted)")
	flags.BoolVar(&o.noColor, "no-color", false, "disable colored output")
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the continuity engine",
	Long: `Run the continuity engine against the configured fleet and print every
resilience event as it is recorded.

Chaos flags are applied once, right after the engine starts:
  neverstop run --fault 'agent-1?' --for 30s
  neverstop run --cascade --workflow

Edits to the config file are picked up while running: never_stop and the
monitor thresholds are re-applied.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runOpts.addFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LoggerOptions())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	eng, err := engine.New(cfg, engine.WithLogger(logger))
	if err != nil {
		return err
	}
	defer eng.Stop()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runOpts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runOpts.duration)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	printer := newEventPrinter(out, !runOpts.noColor && colorEnabled(out))
	bus := eng.Model().Bus()
	subID := bus.Subscribe(event.TypeResilienceRecorded, printer.handle)
	defer bus.Unsubscribe(subID)

	if viper.ConfigFileUsed() != "" {
		config.Watch(logger, eng.ApplyConfig)
	}

	if err := eng.Start(ctx); err != nil {
		return err
	}
	if err := applyChaos(eng, runOpts, out); err != nil {
		return err
	}

	<-ctx.Done()
	eng.Stop()

	stats := eng.Stats()
	_, _ = fmt.Fprintf(out, "\nrecoveries: %d migrated, %d aborted\n", stats.Migrated, stats.Aborted)
	return nil
}

// applyChaos performs the one-shot actions requested by opts.
func applyChaos(eng *engine.Engine, opts runOptions, out io.Writer) error {
	surface := eng.Chaos()

	if opts.fault != "" {
		ids, err := surface.InjectFaultMatching(opts.fault)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "faulted %d agent(s) matching %q\n", len(ids), opts.fault)
	}
	if opts.cascade {
		ids := surface.TriggerCascadeFailure()
		_, _ = fmt.Fprintf(out, "cascade failure hit %v\n", ids)
	}
	if opts.stress {
		n := surface.TriggerStressTest()
		_, _ = fmt.Fprintf(out, "stress applied to %d agent(s)\n", n)
	}
	if opts.workflow {
		runID, err := eng.Workflow().Start()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "workflow run %s started\n", runID)
	}
	return nil
}
