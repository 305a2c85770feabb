package invocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConfigError reports an invalid or missing setting, detected at
// construction time. It is always fatal and never retried.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %q: %s", e.Field, e.Message)
}

// ErrorKind classifies provider failures for retry logic.
type ErrorKind int8

const (
	// KindRateLimit covers rate limiting failures (429, quota exceeded).
	KindRateLimit ErrorKind = iota
	// KindTransient covers timeouts, 5xx responses and connection failures.
	KindTransient
	// KindAuth covers authentication failures (401/403, bad API key).
	KindAuth
	// KindBadRequest covers malformed-request failures (400, context length).
	KindBadRequest
	// KindUnknown is the default for unclassified failures.
	KindUnknown
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindBadRequest:
		return "bad_request"
	case KindUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Retryable reports whether failures of this kind should be retried.
// Unclassified failures are retried; only clearly non-retryable classes
// short-circuit the retry loop.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindAuth, KindBadRequest:
		return false
	default:
		return true
	}
}

// TransientError wraps a provider failure with its classification and an
// optional provider-supplied backoff hint.
type TransientError struct {
	Kind       ErrorKind
	Err        error
	RetryAfter time.Duration // honored over computed backoff when set
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *TransientError) Unwrap() error { return e.Err }

// Classify maps a provider error to an ErrorKind using status codes and
// message heuristics. Provider SDKs do not share a typed error surface, so
// substring matching against well-known phrasings is the portable approach.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "too many requests"):
		return KindRateLimit
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "authentication"):
		return KindAuth
	case strings.Contains(msg, "400"),
		strings.Contains(msg, "invalid request"),
		strings.Contains(msg, "malformed"),
		strings.Contains(msg, "context length"),
		strings.Contains(msg, "maximum context"):
		return KindBadRequest
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "eof"),
		strings.Contains(msg, "500"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "overloaded"):
		return KindTransient
	default:
		return KindUnknown
	}
}

// InvocationError is the terminal failure of a single Generate call after
// exhausting the primary and (if configured) fallback providers. It carries
// the full chain of underlying attempt failures.
type InvocationError struct {
	PrimaryProvider  string
	FallbackProvider string // empty when no fallback is configured
	PrimaryErrs      []error
	FallbackErrs     []error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "generation failed: provider %s exhausted after %d attempt(s)",
		e.PrimaryProvider, len(e.PrimaryErrs))
	if len(e.PrimaryErrs) > 0 {
		fmt.Fprintf(&b, " (last: %v)", e.PrimaryErrs[len(e.PrimaryErrs)-1])
	}
	if e.FallbackProvider != "" {
		fmt.Fprintf(&b, "; fallback %s exhausted after %d attempt(s)",
			e.FallbackProvider, len(e.FallbackErrs))
		if len(e.FallbackErrs) > 0 {
			fmt.Fprintf(&b, " (last: %v)", e.FallbackErrs[len(e.FallbackErrs)-1])
		}
	}
	return b.String()
}

// Unwrap exposes every underlying attempt failure for errors.Is / errors.As.
func (e *InvocationError) Unwrap() []error {
	out := make([]error, 0, len(e.PrimaryErrs)+len(e.FallbackErrs))
	out = append(out, e.PrimaryErrs...)
	out = append(out, e.FallbackErrs...)
	return out
}
