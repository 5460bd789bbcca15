package decision

import (
	"context"
	"fmt"
	"net"

	"github.com/oeoc/neverstop/internal/errors"
)

// Kind distinguishes how a decision call failed.
type Kind int

const (
	// KindTransport means the service could not be reached or rejected the call.
	KindTransport Kind = iota
	// KindTimeout means the service did not answer in time.
	KindTimeout
	// KindParse means the service answered but the answer was unusable.
	KindParse
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is returned by every Client on failure.
type Error struct {
	Kind    Kind
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failure: %v", e.Backend, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrDecisionFailed for every kind and ErrTimeout for timeouts.
func (e *Error) Is(target error) bool {
	switch target {
	case errors.ErrDecisionFailed:
		return true
	case errors.ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// Severity implements errors.EngineError.
func (e *Error) Severity() errors.Severity {
	if e.Kind == KindParse {
		return errors.SeverityWarning
	}
	return errors.SeverityError
}

// IsRetryable implements errors.EngineError. A fresh submission on the
// next monitor tick may succeed for every kind.
func (e *Error) IsRetryable() bool {
	return true
}

func kindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// IsParseFailure reports whether err is an unusable answer.
func IsParseFailure(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindParse
}

// IsTimeout reports whether err is a decision timeout.
func IsTimeout(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTimeout
}

// IsTransport reports whether err is a transport or provider failure.
func IsTransport(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransport
}

func parseError(backend, format string, args ...any) *Error {
	return &Error{Kind: KindParse, Backend: backend, Err: fmt.Errorf(format, args...)}
}

// classify wraps err from a generator call. Errors that are already *Error
// keep their kind; deadline expiry and network timeouts become KindTimeout
// and everything else KindTransport.
func classify(ctx context.Context, backend string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindTimeout, Backend: backend, Err: err}
	default:
		return &Error{Kind: KindTransport, Backend: backend, Err: err}
	}
}
