// Package apperrors defines the failure kinds shared by the upload pipeline,
// the remote fetch service and the tag generator, plus helpers for
// classifying wrapped errors at the HTTP boundary.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindInvalidName     Kind = "invalid_name"
	KindUnsupportedType Kind = "unsupported_type"
	KindPayloadTooLarge Kind = "payload_too_large"
	KindFetchError      Kind = "fetch_error"
	KindTaggingFailed   Kind = "tagging_failed"
	KindUploadFailed    Kind = "upload_failed"
	KindDeleteFailed    Kind = "delete_failed"
)

// Error carries a failure kind and a user-facing message alongside the
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the failure kind from err, or "" when err does not carry one.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// MessageOf extracts the user-facing message from err, falling back to a
// generic one for unclassified errors.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An unexpected error occurred."
}
