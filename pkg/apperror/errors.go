package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the API boundary.
type Kind string

const (
	KindValidation          Kind = "VALIDATION_ERROR"
	KindNotFound            Kind = "NOT_FOUND"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindUpstream            Kind = "UPSTREAM_ERROR"
	KindInternal            Kind = "INTERNAL_ERROR"
)

// Error is the application error carried from the components up to the HTTP layer.
// StatusCode is only set for KindUpstream and holds the engine's HTTP status.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func UpstreamUnavailable(message string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: message, Err: err}
}

func Upstream(statusCode int, message string) *Error {
	return &Error{Kind: KindUpstream, Message: message, StatusCode: statusCode}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// Wrap prefixes the message of an application error while keeping its kind and
// status code. Anything that is not an *Error becomes KindInternal.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return &Error{
			Kind:       appErr.Kind,
			Message:    message + ": " + appErr.Message,
			StatusCode: appErr.StatusCode,
			Err:        err,
		}
	}
	return Internal(message, err)
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// UpstreamStatus returns the engine status code preserved in err, or 0.
func UpstreamStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}
