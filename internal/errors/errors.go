// Package errors provides centralized error definitions and error handling
// utilities for the continuity engine. It defines sentinel errors for the
// fleet model, typed errors for aborted recoveries and missing resources,
// and classification helpers.
//
// # Error Types
//
// Domain-specific errors:
//   - RecoveryError: a recovery submission that was accepted but aborted
//
// Semantic errors:
//   - NotFoundError: agent or task not found
//   - ValidationError: invalid input (fleet files, configuration values)
//
// # Usage
//
//	err := errors.NewRecoveryError("no healthy standby nodes", errors.ErrResourceExhaustion).
//	    WithTask("tsk-101").WithAgent("agent-7").WithReason("FAILURE")
//
//	if errors.Is(err, errors.ErrResourceExhaustion) { ... }
//
//	var recErr *errors.RecoveryError
//	if errors.As(err, &recErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Fleet-related sentinel errors
var (
	// ErrAgentNotFound indicates that an agent id is not part of the fleet.
	ErrAgentNotFound = New("agent not found")
	// ErrTaskNotFound indicates that a task id is not part of the fleet.
	ErrTaskNotFound = New("task not found")
	// ErrDuplicateID indicates that an agent or task id appears twice.
	ErrDuplicateID = New("duplicate id")
	// ErrTargetUnavailable indicates that a migration target is no longer idle and healthy.
	ErrTargetUnavailable = New("migration target unavailable")
)

// Recovery-related sentinel errors
var (
	// ErrEmergencyStop indicates that the global emergency stop is engaged.
	ErrEmergencyStop = New("emergency stop engaged")
	// ErrResourceExhaustion indicates that no healthy standby agent exists.
	ErrResourceExhaustion = New("Resource Exhaustion: No healthy standby nodes found in mesh")
	// ErrRecoveryInFlight indicates that the task already has a recovery running.
	ErrRecoveryInFlight = New("recovery already in flight")
	// ErrDecisionFailed indicates that the decision service could not produce a target.
	ErrDecisionFailed = New("decision service failed")
)

// Workflow-related sentinel errors
var (
	// ErrWorkflowActive indicates that a workflow run is already in progress.
	ErrWorkflowActive = New("workflow already active")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// EngineError is the base interface for all typed errors in this module.
type EngineError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the condition is transient and a later
	// attempt (for example the next monitor tick) may succeed.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// RecoveryError describes a recovery submission that was accepted by the
// coordinator but did not complete a migration.
//
// Example:
//
//	err := errors.NewRecoveryError("decision call failed", cause).WithTask("tsk-101")
//	fmt.Println(err) // "recovery error [task=tsk-101]: decision call failed: <cause>"
type RecoveryError struct {
	baseError
	TaskID        string
	FailedAgentID string
	Reason        string
}

// NewRecoveryError creates a new RecoveryError. Recoveries are re-detected
// on the next monitor tick, so they are retryable by default.
func NewRecoveryError(message string, cause error) *RecoveryError {
	return &RecoveryError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: true,
		},
	}
}

// WithTask adds the orphaned task id to the error context.
func (e *RecoveryError) WithTask(id string) *RecoveryError {
	e.TaskID = id
	return e
}

// WithAgent adds the failed agent id to the error context.
func (e *RecoveryError) WithAgent(id string) *RecoveryError {
	e.FailedAgentID = id
	return e
}

// WithReason adds the detection reason code to the error context.
func (e *RecoveryError) WithReason(reason string) *RecoveryError {
	e.Reason = reason
	return e
}

// WithSeverity sets the error severity.
func (e *RecoveryError) WithSeverity(s Severity) *RecoveryError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *RecoveryError) Error() string {
	var parts []string
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}
	if e.FailedAgentID != "" {
		parts = append(parts, fmt.Sprintf("agent=%s", e.FailedAgentID))
	}
	if e.Reason != "" {
		parts = append(parts, fmt.Sprintf("reason=%s", e.Reason))
	}

	prefix := "recovery error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("recovery error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Detail returns the message and cause without the bracketed context
// prefix. It is the text operators see in diagnostic events.
func (e *RecoveryError) Detail() string {
	if e.cause == nil {
		return e.message
	}
	if e.message == "" {
		return e.cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *RecoveryError) Is(target error) bool {
	if _, ok := target.(*RecoveryError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a fleet entity that does not exist.
//
// Example:
//
//	err := errors.NewNotFoundError("agent", "agent-99")
//	fmt.Println(err) // "agent not found: agent-99"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  fmt.Sprintf("%s not found", resourceType),
			severity: SeverityWarning,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ResourceID)
}

// Is maps agent and task lookups onto their sentinels.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	switch e.ResourceType {
	case "agent":
		return target == ErrAgentNotFound
	case "task":
		return target == ErrTaskNotFound
	}
	return false
}

// ValidationError represents invalid input such as a malformed fleet file.
//
// Example:
//
//	err := errors.NewValidationError("health score out of range").WithField("agents[3].health_score").WithValue(140)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField records the offending field path.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue records the offending value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	msg := e.message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Value != nil {
		msg = fmt.Sprintf("%s (got: %v)", msg, e.Value)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return "validation error: " + msg
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition.
// Errors implementing EngineError decide for themselves; otherwise only
// errors wrapping ErrTimeout are considered retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var engineErr EngineError
	if As(err, &engineErr) {
		return engineErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement EngineError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var engineErr EngineError
	if As(err, &engineErr) {
		return engineErr.Severity()
	}

	return SeverityError
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
