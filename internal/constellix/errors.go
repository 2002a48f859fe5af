package constellix

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an API failure for retry and reporting decisions.
type ErrorKind int

const (
	// KindTransient covers timeouts, connection failures and 5xx responses.
	KindTransient ErrorKind = iota
	// KindRateLimit is a 429 response; retried with backoff, honoring a
	// Retry-After hint when present.
	KindRateLimit
	// KindAuth is a 401/403 response. Never retried.
	KindAuth
	// KindValidation is a 400/422 response. Never retried.
	KindValidation
	// KindNotFound is a 404 response. Never retried.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimit:
		return "rate_limit"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// APIError is a non-2xx response from the Constellix API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Method     string
	Path       string
	Messages   []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("constellix: %s %s returned %d (%s)",
		e.Method, e.Path, e.StatusCode, e.Kind)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

// Retryable reports whether the failure is safe to retry.
func (e *APIError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindRateLimit
}

// ErrorKindOf extracts the kind from an error chain. Non-API errors
// (transport failures, timeouts) classify as transient.
func ErrorKindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// IsNotFound reports whether the error chain contains a 404 API error.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsAuth reports whether the error chain contains a 401/403 API error.
func IsAuth(err error) bool {
	return hasKind(err, KindAuth)
}

// IsValidation reports whether the error chain contains a 400/422 API error.
func IsValidation(err error) bool {
	return hasKind(err, KindValidation)
}

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
