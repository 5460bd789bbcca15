// Package engine owns one running continuity engine.
//
// An [Engine] is built from a [config.Config] and holds the fleet model,
// the decision client, the recovery coordinator, the continuity monitor,
// the workflow driver, the chaos surface, the heartbeat pump and the
// optional NATS relay. There is no package-level state: tests and the CLI
// each build their own engine.
//
//	eng, err := engine.New(cfg, engine.WithLogger(logger))
//	if err != nil { ... }
//	if err := eng.Start(ctx); err != nil { ... }
//	defer eng.Stop()
//
// Stop is terminal. A stopped engine cannot be started again.
package engine
