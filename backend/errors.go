package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// StatusCode returns the HTTP status of err if it wraps an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage maps err to a generic message that is safe to show to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Please try again."
	}
	status := StatusCode(err)
	switch {
	case status == http.StatusBadRequest:
		return "Invalid data. Please check your input and try again."
	case status == http.StatusUnauthorized:
		return "Your session has expired. Please log in again."
	case status == http.StatusForbidden:
		return "You don't have permission to perform this action."
	case status == http.StatusNotFound:
		return "The item was not found. It may have already been deleted."
	case status == http.StatusConflict:
		return "This item already exists."
	case status >= 500:
		return "Server error. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}
