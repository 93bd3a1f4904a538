package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed model call for retry purposes.
type ErrorKind string

const (
	// KindTransient covers network faults, rate limits, and timeouts.
	// The caller may retry.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers malformed requests and auth failures.
	// The caller must not retry.
	KindPermanent ErrorKind = "permanent"
	// KindUnsupported means the capability is not configured at all,
	// e.g. no API key for the requested role.
	KindUnsupported ErrorKind = "unsupported"
)

// CallError is the failure result of a model invocation.
type CallError struct {
	Kind     ErrorKind
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Transient wraps err as a retriable call failure.
func Transient(provider string, err error) *CallError {
	return &CallError{Kind: KindTransient, Provider: provider, Err: err}
}

// Permanent wraps err as a non-retriable call failure.
func Permanent(provider string, err error) *CallError {
	return &CallError{Kind: KindPermanent, Provider: provider, Err: err}
}

// Unsupported reports a capability that is not configured.
func Unsupported(provider string, err error) *CallError {
	return &CallError{Kind: KindUnsupported, Provider: provider, Err: err}
}

// KindOf classifies an arbitrary error. Deadline expiry is transient;
// anything not carrying a CallError is treated as permanent.
func KindOf(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindPermanent
}

// IsTransient reports whether the error may be retried.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsUnsupported reports whether the error marks a missing capability.
func IsUnsupported(err error) bool { return KindOf(err) == KindUnsupported }

// classifyStatus maps an HTTP status code to an error kind.
// 429 and 5xx are retriable; other non-2xx codes are not.
func classifyStatus(code int) ErrorKind {
	if code == 429 || code >= 500 {
		return KindTransient
	}
	return KindPermanent
}
