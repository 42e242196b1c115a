package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for backend failures.
var (
	// ErrForbidden is matched by errors.Is for HTTP 403 responses, returned
	// when the Google account lacks access to the requested property.
	ErrForbidden = errors.New("access to the Search Console property is forbidden")

	// ErrMissingFile is returned when a CSV analysis has no keyword file.
	ErrMissingFile = errors.New("a keyword CSV file is required")

	// ErrMissingSite is returned when a Search Console analysis has no site URL.
	ErrMissingSite = errors.New("a site URL is required")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the HTTP status line, e.g. "400 Bad Request".
	Status string

	// Message is the error reported by the backend, if any.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %s", e.Status)
	}
	return fmt.Sprintf("backend returned %s: %s", e.Status, e.Message)
}

// Is reports whether target is ErrForbidden for 403 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrForbidden && e.StatusCode == http.StatusForbidden
}
