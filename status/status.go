// Package status implements the Status sum type used across the tokenizer
// engine for fallible operations: a small closed set of failure codes plus
// a message and an optional wrapped cause.
package status

import "fmt"

// Code classifies the kind of failure. The zero value is OK.
type Code int

const (
	OK Code = iota
	Cancelled
	InvalidArgument
	NotFound
	AlreadyExists
	ResourceExhausted
	Unavailable
	FailedPrecondition
	OutOfRange
	Unimplemented
	Internal
	Aborted
	DeadlineExceeded
	DataLoss
	Unknown
	PermissionDenied
	Unauthenticated
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Cancelled:
		return "cancelled"
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	case ResourceExhausted:
		return "resource_exhausted"
	case Unavailable:
		return "unavailable"
	case FailedPrecondition:
		return "failed_precondition"
	case OutOfRange:
		return "out_of_range"
	case Unimplemented:
		return "unimplemented"
	case Internal:
		return "internal"
	case Aborted:
		return "aborted"
	case DeadlineExceeded:
		return "deadline_exceeded"
	case DataLoss:
		return "data_loss"
	case PermissionDenied:
		return "permission_denied"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Status is the sum-type error carried by every fallible operation in this
// module: a code plus a human-readable message and an optional wrapped cause.
type Status struct {
	Code    Code
	Message string
	Cause   error
}

// New builds a Status with a formatted message.
func New(code Code, format string, args ...any) *Status {
	return &Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a Status that carries an underlying error as its cause.
func Wrap(code Code, cause error, format string, args ...any) *Status {
	return &Status{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (s *Status) Error() string {
	if s == nil {
		return "ok"
	}
	if s.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", s.Code, s.Message, s.Cause)
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

func (s *Status) Unwrap() error {
	if s == nil {
		return nil
	}
	return s.Cause
}

// OK reports whether the status represents success (nil is success).
func (s *Status) OK() bool {
	return s == nil || s.Code == OK
}

// Is reports whether err is a *Status with the given code, short-circuiting
// callers that only care about classification and not message text.
func Is(err error, code Code) bool {
	s, ok := err.(*Status)
	return ok && s != nil && s.Code == code
}
