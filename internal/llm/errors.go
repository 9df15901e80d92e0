package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind classifies gateway failures into the taxonomy callers switch on.
type ErrorKind string

const (
	KindConnection ErrorKind = "connection"
	KindTimeout    ErrorKind = "timeout"
	KindRateLimit  ErrorKind = "rate_limit"
	KindUpstream   ErrorKind = "upstream"
	KindMalformed  ErrorKind = "malformed_response"
)

// ErrUpstreamUnavailable is returned once the primary model has exhausted its
// retries and the one-shot fallback has also failed.
var ErrUpstreamUnavailable = errors.New("llm upstream unavailable")

// Error wraps a gateway failure with its classification and, when the
// upstream responded at all, the HTTP status code.
type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("llm %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindConnection, KindTimeout, KindRateLimit, KindUpstream:
		return true
	}
	return false
}

// classifyTransport maps a transport-level error (no HTTP status) to a kind.
func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return KindTimeout
	}
	return KindConnection
}

// classifyStatus maps a non-2xx HTTP status to a kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 429:
		return KindRateLimit
	case status >= 500:
		return KindUpstream
	default:
		return KindMalformed
	}
}
