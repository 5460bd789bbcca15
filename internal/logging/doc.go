// Package logging provides structured logging for the continuity engine.
//
// It wraps log/slog with a JSON handler and a small set of persistent
// attributes (component, agent, task) so that every monitor tick and
// recovery can be followed in the log stream:
//
//	logger, err := logging.NewLogger(logging.Options{Dir: "/var/log/neverstop", Level: "debug"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	rec := logger.WithComponent("recovery").WithTask("tsk-101")
//	rec.Info("recovery accepted", "failed_agent", "agent-7", "reason", "FAILURE")
//
// When Options.Dir is empty, logs go to stderr. Otherwise they are written
// to neverstop.log in that directory through a [RotatingWriter].
package logging
