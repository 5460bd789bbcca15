package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/oeoc/neverstop/internal/decision"
	"github.com/oeoc/neverstop/internal/logging"
	"github.com/oeoc/neverstop/internal/relay"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "monitor.interval")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return logging.ValidLevels()
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateMonitor()...)
	errors = append(errors, c.validateRecovery()...)
	errors = append(errors, c.validateWorkflow()...)
	errors = append(errors, c.validateDecision()...)
	errors = append(errors, c.validateFleet()...)
	errors = append(errors, c.validateRelay()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func positiveDuration(field string, d time.Duration) []ValidationError {
	if d <= 0 {
		return []ValidationError{{Field: field, Value: d, Message: "must be positive"}}
	}
	return nil
}

func healthRange(field string, h float64) []ValidationError {
	if h < 0 || h > 100 {
		return []ValidationError{{Field: field, Value: h, Message: "must be between 0 and 100"}}
	}
	return nil
}

// validateMonitor validates the MonitorConfig
func (c *Config) validateMonitor() []ValidationError {
	var errors []ValidationError

	errors = append(errors, positiveDuration("monitor.interval", c.Monitor.Interval)...)
	errors = append(errors, positiveDuration("monitor.stale_after", c.Monitor.StaleAfter)...)
	errors = append(errors, healthRange("monitor.degraded_health_threshold", c.Monitor.DegradedHealthThreshold)...)

	return errors
}

// validateRecovery validates the RecoveryConfig
func (c *Config) validateRecovery() []ValidationError {
	var errors []ValidationError

	errors = append(errors, healthRange("recovery.min_candidate_health", c.Recovery.MinCandidateHealth)...)

	if c.Recovery.MaxCandidates < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.max_candidates",
			Value:   c.Recovery.MaxCandidates,
			Message: "must be at least 1",
		})
	}

	// Zero is allowed: migrate immediately
	if c.Recovery.MigrationDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "recovery.migration_delay",
			Value:   c.Recovery.MigrationDelay,
			Message: "must be non-negative",
		})
	}

	errors = append(errors, positiveDuration("recovery.decision_timeout", c.Recovery.DecisionTimeout)...)

	return errors
}

// validateWorkflow validates the WorkflowConfig
func (c *Config) validateWorkflow() []ValidationError {
	var errors []ValidationError

	errors = append(errors, positiveDuration("workflow.step_interval", c.Workflow.StepInterval)...)

	if c.Workflow.StepIncrement < 1 || c.Workflow.StepIncrement > 100 {
		errors = append(errors, ValidationError{
			Field:   "workflow.step_increment",
			Value:   c.Workflow.StepIncrement,
			Message: "must be between 1 and 100",
		})
	}

	if c.Workflow.CompletionDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "workflow.completion_delay",
			Value:   c.Workflow.CompletionDelay,
			Message: "must be non-negative",
		})
	}

	if strings.TrimSpace(c.Workflow.WorkflowID) == "" {
		errors = append(errors, ValidationError{
			Field:   "workflow.workflow_id",
			Value:   c.Workflow.WorkflowID,
			Message: "must not be empty",
		})
	}

	return errors
}

// validateDecision validates the DecisionConfig
func (c *Config) validateDecision() []ValidationError {
	var errors []ValidationError

	if c.Decision.Backend != "" && !slices.Contains(decision.Backends(), c.Decision.Backend) {
		errors = append(errors, ValidationError{
			Field:   "decision.backend",
			Value:   c.Decision.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(decision.Backends(), ", ")),
		})
	}

	if c.Decision.Endpoint != "" {
		if u, err := url.Parse(c.Decision.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "decision.endpoint",
				Value:   c.Decision.Endpoint,
				Message: "must be an absolute URL",
			})
		}
	}

	return errors
}

// validateFleet validates the FleetConfig
func (c *Config) validateFleet() []ValidationError {
	var errors []ValidationError

	// Agent count only matters for the seeded fleet
	if c.Fleet.File == "" && c.Fleet.Agents < 1 {
		errors = append(errors, ValidationError{
			Field:   "fleet.agents",
			Value:   c.Fleet.Agents,
			Message: "must be at least 1",
		})
	}

	if c.Fleet.HeartbeatInterval < 0 {
		errors = append(errors, ValidationError{
			Field:   "fleet.heartbeat_interval",
			Value:   c.Fleet.HeartbeatInterval,
			Message: "must be non-negative (0 disables heartbeats)",
		})
	}

	if c.Fleet.EventCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "fleet.event_capacity",
			Value:   c.Fleet.EventCapacity,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateRelay validates the RelayConfig
func (c *Config) validateRelay() []ValidationError {
	var errors []ValidationError

	if _, err := relay.ParseEncoding(c.Relay.Encoding); err != nil {
		errors = append(errors, ValidationError{
			Field:   "relay.encoding",
			Value:   c.Relay.Encoding,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(relay.Encodings(), ", ")),
		})
	}

	if !c.Relay.Enabled {
		return errors
	}

	if u, err := url.Parse(c.Relay.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "relay.url",
			Value:   c.Relay.URL,
			Message: "must be a URL such as nats://host:4222",
		})
	}

	if strings.TrimSpace(c.Relay.Subject) == "" || strings.ContainsAny(c.Relay.Subject, " \t*>") {
		errors = append(errors, ValidationError{
			Field:   "relay.subject",
			Value:   c.Relay.Subject,
			Message: "must be a non-empty subject without spaces or wildcards",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
