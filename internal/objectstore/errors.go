package objectstore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Error kinds. Every failure returned by Client unwraps to exactly one of these.
var (
	ErrNotFound    = errors.New("object not found")
	ErrConflict    = errors.New("object changed since it was read")
	ErrTooLarge    = errors.New("object too large")
	ErrAuthFailure = errors.New("credential rejected")
	ErrRateLimited = errors.New("rate limit exhausted")
	ErrUnavailable = errors.New("backend unavailable")
	ErrRequest     = errors.New("request rejected")
)

// APIError describes a failed call against the contents API.
type APIError struct {
	// Kind is one of the sentinel errors above.
	Kind error

	StatusCode int
	Method     string
	Path       string

	// Message is the top-level description returned by the backend.
	Message          string
	DocumentationURL string
	Errors           []ValidationError

	// Err is the transport error when no response was received.
	Err error
}

// ValidationError is a field-level failure attached to 422 responses.
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %v", e.Method, e.Path, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	for _, v := range e.Errors {
		detail := v.Message
		if detail == "" {
			detail = v.Code
		}
		fmt.Fprintf(&b, "; %s.%s: %s", v.Resource, v.Field, detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is an optimistic-concurrency rejection.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsRateLimited reports whether the backend quota is exhausted.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsUnavailable reports whether the backend could not be reached or failed internally.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

type errorBody struct {
	Message          string            `json:"message"`
	DocumentationURL string            `json:"documentation_url"`
	Errors           []ValidationError `json:"errors"`
}

// newAPIError builds an APIError from a non-2xx response.
func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Method: method, Path: path}
	var parsed errorBody
	if len(body) > 0 && sonic.Unmarshal(body, &parsed) == nil {
		apiErr.Message = parsed.Message
		apiErr.DocumentationURL = parsed.DocumentationURL
		apiErr.Errors = parsed.Errors
	} else if len(body) > 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	apiErr.Kind = classify(status, apiErr.Message)
	return apiErr
}

// classify maps a status code and backend message to an error kind.
func classify(status int, message string) error {
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuthFailure
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusForbidden && isRateLimitMessage(lower):
		return ErrRateLimited
	case status == http.StatusForbidden:
		return ErrAuthFailure
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	case status == http.StatusUnprocessableEntity && strings.Contains(lower, "sha"):
		return ErrConflict
	case status == http.StatusUnprocessableEntity && isTooLargeMessage(lower):
		return ErrTooLarge
	case status >= 500:
		return ErrUnavailable
	}
	return ErrRequest
}

func isRateLimitMessage(lower string) bool {
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection")
}

func isTooLargeMessage(lower string) bool {
	return strings.Contains(lower, "too large") ||
		strings.Contains(lower, "too big")
}
