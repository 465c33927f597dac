package metsalto

import (
	"errors"
	"fmt"
)

// Application error codes. Codes double as diagnostic codes in processing
// outcomes and in the run summary, so they are stable strings.
const (
	// EARCHIVE: archive unreadable or incomplete.
	EARCHIVE = "archive"
	// EMETS: malformed or missing structural map.
	EMETS = "mets"
	// EALTO: malformed page content, scoped to one page.
	EALTO = "alto"
	// EASSEMBLY: article not resolvable from available regions.
	EASSEMBLY = "assembly"
	// EPERSIST: output write failure.
	EPERSIST = "persistence"
	// EENV: run cannot start (unwritable output root, no issues).
	EENV = "environment"
	// ECRASH: worker terminated unexpectedly.
	ECRASH = "crash"
	// EINTERRUPTED: run was interrupted before the issue completed.
	EINTERRUPTED = "interrupted"

	EINVALID  = "invalid"
	ENOTFOUND = "not_found"
	EINTERNAL = "internal"
)

// Error represents an application-specific error.
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError returns an Error with the given code wrapping err.
func WrapError(code string, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL. Nil returns "".
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}
