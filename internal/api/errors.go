package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNotAuthenticated is returned before any network call when a
	// protected endpoint is used without a token.
	ErrNotAuthenticated = errors.New("api: not authenticated")
	// ErrSessionExpired means the token could not be refreshed; the session
	// has been cleared and the user must log in again.
	ErrSessionExpired = errors.New("api: session expired")
)

// APIError is a 4xx/5xx response. Message is the server's own text when it
// sent one.
type APIError struct {
	Status  int
	Code    string
	Message string
	Path    string
	Details map[string]string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// ValidationError is raised client-side before a request is sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// TransportError wraps failures where no response arrived: dial errors,
// timeouts, resets.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

const (
	msgConnection     = "No response from server. Please check your connection."
	msgSessionExpired = "Your session has expired. Please log in again."
	msgLoginRequired  = "Please log in first."
	msgUnexpected     = "Something went wrong. Please try again."
)

func defaultMessage(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "You are not authorized. Please log in."
	case status == http.StatusForbidden:
		return "You don't have permission to perform this action."
	case status == http.StatusNotFound:
		return "The requested resource was not found."
	case status == http.StatusTooManyRequests:
		return "Too many requests. Please try again later."
	case status >= 500:
		return "Server error. Please try again later."
	}
	return "Request failed."
}

// Describe turns any client error into the one-line notification shown to
// the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var (
		verr *ValidationError
		aerr *APIError
		terr *TransportError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrSessionExpired):
		return msgSessionExpired
	case errors.Is(err, ErrNotAuthenticated):
		return msgLoginRequired
	case errors.As(err, &aerr):
		if aerr.Message != "" {
			return aerr.Message
		}
		return defaultMessage(aerr.Status)
	case errors.As(err, &terr):
		return msgConnection
	}
	return msgUnexpected
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var aerr *APIError
	return errors.As(err, &aerr) && aerr.Status == status
}
