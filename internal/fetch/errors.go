package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus is returned when a response has a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrBodyTooLarge is returned by Get when the body exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// StatusError describes a response rejected because of its status code.
type StatusError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code received.
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d for %s", ErrUnexpectedStatus, e.StatusCode, e.URL)
}

// Unwrap allows errors.Is(err, ErrUnexpectedStatus).
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
