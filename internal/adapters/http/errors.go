package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Client errors
var (
	ErrNetwork            = errors.New("network error: no response from server")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoID               = errors.New("create response carried no id")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

// Error formats the failed call.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// IsAuth reports whether the backend rejected the session.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// *APIError (for example a network failure).
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
