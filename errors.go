package esmerald

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for request binding.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindCookie = errors.New("bind cookie")
	ErrBindBody   = errors.New("bind body")
	ErrBindForm   = errors.New("bind form")
)

// Configuration errors returned while composing route trees.
var (
	ErrImproperlyConfigured = errors.New("improperly configured")
	ErrDuplicateRoute       = errors.New("duplicate route")
)

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status" required:"true"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// ValidationError describes a single request validation failure. Loc is the
// location of the offending value, e.g. ["query", "page"] or ["body", "name"].
type ValidationError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// HTTPValidationError is the 422 response body written when request binding
// or constraint validation fails. Its shape matches the HTTPValidationError
// component of the generated OpenAPI document.
//
//nolint:errname // mirrors the documented component name
type HTTPValidationError struct {
	Detail []ValidationError `json:"detail"`

	causes []error
}

func (e *HTTPValidationError) add(cause error, loc []any, typ, msg string) {
	e.Detail = append(e.Detail, ValidationError{Loc: loc, Msg: msg, Type: typ})
	if cause != nil {
		e.causes = append(e.causes, cause)
	}
}

// Unwrap returns the binding errors behind the failures, so errors.Is
// matches ErrBindQuery and friends.
func (e *HTTPValidationError) Unwrap() []error { return e.causes }

// Error summarizes the validation failures.
func (e *HTTPValidationError) Error() string {
	switch len(e.Detail) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", e.Detail[0].Msg)
	default:
		return fmt.Sprintf("validation failed: %d errors", len(e.Detail))
	}
}

// StatusCode returns 422 Unprocessable Entity.
func (e *HTTPValidationError) StatusCode() int { return http.StatusUnprocessableEntity }

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
