package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies every failure a Resources call can report.
type ErrorKind int

const (
	// KindValidation is detected client-side before any request is issued.
	KindValidation ErrorKind = iota + 1
	// KindAuth means the credential is missing or rejected.
	KindAuth
	// KindNotFound means the entity vanished server-side.
	KindNotFound
	// KindConflict covers duplicate names and writes blocked by dependent records.
	KindConflict
	// KindNetwork covers transport failures and unusable responses.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by Resources implementations.
type Error struct {
	Kind    ErrorKind
	Op      string // "list classes", "create section", ...
	Message string // human-readable, usually the server's message
	Status  int    // HTTP status, 0 when no response was received
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of err, or 0 when err is not a *Error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Message returns the operator-facing text of err: the server message when one
// was given, otherwise the full error string.
func Message(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func validationError(op string, cause error) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: cause.Error(), Cause: cause}
}

// kindForStatus maps an HTTP status to an ErrorKind. ok is false for 2xx.
func kindForStatus(status int) (ErrorKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return 0, false
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth, true
	case status == http.StatusNotFound:
		return KindNotFound, true
	case status == http.StatusConflict:
		return KindConflict, true
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation, true
	default:
		return KindNetwork, true
	}
}
