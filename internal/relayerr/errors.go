// Package relayerr defines the tagged error taxonomy shared by all relay
// components. Callers branch on a finite Kind enumeration instead of
// inspecting error types or message strings, and the HTTP layer maps each
// Kind to a single response status.
package relayerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the relay's failure categories.
type Kind int

const (
	// KindInternal is the catch-all for unexpected failures.
	KindInternal Kind = iota
	// KindConfiguration means a required secret or address is missing.
	// Always a 500, never retried, operator-actionable.
	KindConfiguration
	// KindConnection means the list-store is unreachable after the
	// connection's own retries are exhausted.
	KindConnection
	// KindAuth covers bad passwords, bad/expired tokens and webhook
	// signature failures.
	KindAuth
	// KindValidation means the caller's input is malformed.
	KindValidation
	// KindProvider means the delivery provider rejected the request.
	// Surfaced with the provider's own message.
	KindProvider
	// KindRateLimited means the request was rejected by the rate governor.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindProvider:
		return "provider"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error is a tagged error carrying a Kind and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a tagged error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a tagged error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal if err carries no tag.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-facing message for err. Untagged errors
// get a generic message so internals are never leaked.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "An internal error occurred"
}

// HTTPStatus maps an error's Kind to its response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation, KindProvider:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		// Configuration, Connection and Internal all surface as 500.
		return http.StatusInternalServerError
	}
}
