// Package apperror defines the error kinds surfaced by the service and their
// mapping onto HTTP responses.
package apperror

import (
	"errors"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies a failure for the boundary layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInvalidCredential
	KindInvalidToken
	KindExpired
	KindConflict
	KindForbidden
)

var kindNames = map[Kind]string{
	KindInternal:          "internal",
	KindValidation:        "validation",
	KindNotFound:          "not_found",
	KindInvalidCredential: "invalid_credential",
	KindInvalidToken:      "invalid_token",
	KindExpired:           "expired",
	KindConflict:          "conflict",
	KindForbidden:         "forbidden",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// StatusCode returns the HTTP status used when a failure of this kind reaches a client.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidCredential, KindInvalidToken, KindExpired:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Details carries per-field messages for
// validation failures.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a classified error.
func New(kind Kind, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap classifies err. Internal causes are annotated with a stack trace.
func Wrap(kind Kind, message string, err error) *Error {
	if kind == KindInternal && err != nil {
		err = pkgerrors.WithStack(err)
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation is shorthand for a validation failure with field details.
func Validation(message string, details ...string) *Error {
	return New(KindValidation, message, details...)
}

// Internal wraps an unexpected store or crypto failure.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf reports the kind of the outermost classified error in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the outermost classified error, classifying unknown errors as internal.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}
