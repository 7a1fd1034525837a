package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// errRequest marks failures that happen before anything is sent.
var errRequest = errors.New("invalid request")

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 2048

// APIError is a non-2xx response from a remote API.
type APIError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Body       string
	// RateLimited is set for 429 and for 403 with an exhausted quota.
	RateLimited bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s %s: status %d: %s", e.Service, e.Method, e.Path, e.StatusCode, e.Body)
}

// Transient reports whether the failure may succeed on retry.
func (e *APIError) Transient() bool {
	return e.RateLimited || e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusRequestTimeout
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

func trim(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Ambiguous reports whether a failed write may still have been applied by
// the remote: no response arrived, or the remote answered with a timeout or
// server error. Client-side validation failures are not ambiguous.
func Ambiguous(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.RateLimited && (apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusRequestTimeout)
	}
	return !errors.Is(err, errRequest)
}
