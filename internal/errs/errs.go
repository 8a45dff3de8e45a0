package errs

import (
	"errors"
	"strings"
)

// Kind classifies an outcome of a core operation.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindUnauthorized
	KindRateLimited
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindValidation:
		return "ValidationFailed"
	case KindUnauthorized:
		return "Unauthorized"
	case KindRateLimited:
		return "RateLimited"
	default:
		return "InternalError"
	}
}

// InternalMessage is the only message ever shown for KindInternal.
const InternalMessage = "Internal server error"

// Error is a classified outcome with a caller-facing message.
// Err keeps the underlying cause for logs; it is never shown to callers.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string // field errors for KindValidation
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	if len(e.Fields) > 0 {
		return e.Message + ": " + strings.Join(e.Fields, "; ")
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match a classified error against the kind sentinels.
func (e *Error) Is(target error) bool {
	return target == sentinelOf(e.Kind)
}

func sentinelOf(k Kind) error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrAlreadyExists
	case KindValidation:
		return ErrValidation
	case KindUnauthorized:
		return ErrUnauthorized
	case KindRateLimited:
		return ErrRateLimited
	default:
		return ErrInternal
	}
}

// NotFound builds a NotFound outcome, e.g. NotFound("Patient not found").
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// Conflict builds a Conflict outcome for duplicated unique fields.
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

// Validation builds a ValidationFailed outcome with optional field errors.
func Validation(msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// Unauthorized builds an Unauthorized outcome.
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

// RateLimited builds a RateLimited outcome.
func RateLimited(msg string) *Error { return &Error{Kind: KindRateLimited, Message: msg} }

// Internal downgrades any failure to an InternalError outcome, keeping the cause.
// Already classified errors are returned unchanged.
func Internal(cause error) error {
	var e *Error
	if errors.As(cause, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: InternalMessage, Err: cause}
}

// KindOf classifies err. Bare sentinels map to their kind; anything else is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if KindOf(err) == KindInternal {
		return InternalMessage
	}
	return err.Error()
}
