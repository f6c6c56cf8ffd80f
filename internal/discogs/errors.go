package discogs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/crate/internal/shared"
)

// ErrorKind classifies a failed call. The retry loop only retries [Transient].
type ErrorKind int

const (
	// Unclassified errors did not come from the API (context cancellation, open breaker).
	Unclassified ErrorKind = iota
	Transient
	NonRetryable
	Malformed
)

func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case NonRetryable:
		return "non-retryable"
	case Malformed:
		return "malformed"
	default:
		return "unclassified"
	}
}

// Classify maps a non-2xx HTTP status to an [ErrorKind].
func Classify(status int) ErrorKind {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return Transient
	default:
		return NonRetryable
	}
}

// APIError is returned for every failed request attempt.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Method     string
	Endpoint   string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("discogs API error: %s %s", e.Method, e.Endpoint)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.StatusCode == 0 && e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the failed call may succeed if repeated.
func (e *APIError) Retryable() bool { return e.Kind == Transient }

// IsRetryable reports whether err carries a retryable [APIError].
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

// KindOf returns the [ErrorKind] of the first [APIError] in err's chain.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return Unclassified
}

// StatusOf returns the HTTP status of the first [APIError] in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newStatusError(method, endpoint string, status int, message string) *APIError {
	kind := Classify(status)

	var sentinel error
	switch {
	case status == http.StatusTooManyRequests:
		sentinel = shared.ErrRateLimited
	case kind == Transient:
		sentinel = shared.ErrServiceUnavailable
	case status == http.StatusUnauthorized:
		sentinel = shared.ErrNotAuthenticated
	default:
		sentinel = shared.ErrAPIRequest
	}

	return &APIError{Kind: kind, StatusCode: status, Method: method, Endpoint: endpoint, Message: message, Err: sentinel}
}

func newMalformedError(method, endpoint string, err error) *APIError {
	return &APIError{
		Kind:     Malformed,
		Method:   method,
		Endpoint: endpoint,
		Err:      fmt.Errorf("%w: %w", shared.ErrMalformedResponse, err),
	}
}

func newTransportError(method, endpoint string, err error) *APIError {
	return &APIError{
		Kind:     NonRetryable,
		Method:   method,
		Endpoint: endpoint,
		Err:      fmt.Errorf("%w: %w", shared.ErrAPIRequest, err),
	}
}
