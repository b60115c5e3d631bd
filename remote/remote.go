package remote

import (
	"errors"
	"fmt"
)

// Kind is the failure class of a remote call.
type Kind int

const (
	// KindTransient covers timeouts, connection resets, and 5xx responses.
	// Safe to retry with backoff.
	KindTransient Kind = iota
	// KindRateLimit covers 429-class throttling responses. Not retried
	// directly; counted toward the breaker and the halt threshold.
	KindRateLimit
	// KindHardBlock covers 403-class or explicit block responses. Retrying
	// an address-level block cannot succeed and only worsens it.
	KindHardBlock
	// KindAuth covers 401/402-class credential failures.
	KindAuth
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimit:
		return "rate_limit"
	case KindHardBlock:
		return "hard_block"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Error is a classified remote call failure.
type Error struct {
	Kind       Kind
	StatusCode int // 0 when the failure has no HTTP status (e.g. network)
	Message    string
	Err        error // wrapped cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote: %s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Transient creates a transient (retryable) remote error.
func Transient(statusCode int, message string) *Error {
	return &Error{Kind: KindTransient, StatusCode: statusCode, Message: message}
}

// TransientFrom wraps an underlying error (timeout, connection failure) as
// a transient remote error.
func TransientFrom(err error) *Error {
	return &Error{Kind: KindTransient, Message: err.Error(), Err: err}
}

// RateLimited creates a rate-limit remote error.
func RateLimited(statusCode int, message string) *Error {
	return &Error{Kind: KindRateLimit, StatusCode: statusCode, Message: message}
}

// HardBlocked creates a hard-block remote error.
func HardBlocked(statusCode int, message string) *Error {
	return &Error{Kind: KindHardBlock, StatusCode: statusCode, Message: message}
}

// AuthFailed creates an authentication remote error.
func AuthFailed(statusCode int, message string) *Error {
	return &Error{Kind: KindAuth, StatusCode: statusCode, Message: message}
}

// FromStatusCode classifies an HTTP status code into a remote error.
// Returns nil for success codes (2xx).
func FromStatusCode(statusCode int, message string) *Error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == 429:
		return RateLimited(statusCode, message)
	case statusCode == 403:
		return HardBlocked(statusCode, message)
	case statusCode == 401 || statusCode == 402:
		return AuthFailed(statusCode, message)
	case statusCode >= 500:
		return Transient(statusCode, message)
	default:
		return &Error{Kind: KindTransient, StatusCode: statusCode, Message: message}
	}
}

// KindOf extracts the failure kind from an error chain.
// The second return is false when err is not a classified remote error.
func KindOf(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

// IsRetryable reports whether err should be retried with backoff.
// Only transient failures are retryable; unclassified errors are treated
// as transient so plain network errors from the caller's fn still retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	kind, ok := KindOf(err)
	if !ok {
		return true
	}
	return kind == KindTransient
}

// IsRateLimit reports whether err is a rate-limit failure.
func IsRateLimit(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindRateLimit
}

// IsHardBlock reports whether err is a hard block.
func IsHardBlock(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindHardBlock
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindAuth
}
