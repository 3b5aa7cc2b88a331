package bomb

import (
	"errors"
	"fmt"
)

// UsageError marks a malformed command: unknown identifier, ambiguous token,
// trailing arguments, out-of-range module number. Always reported inline to
// the requester, never fatal.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Usagef builds a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError marks a command that names a valid operation in an invalid
// state: arming an active channel, claiming a claimed module. Reported inline;
// no mutation occurs.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// Conflictf builds a ConflictError.
func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err should be rendered as an inline reply
// rather than logged as a failure.
func IsUserError(err error) bool {
	var ue *UsageError
	var ce *ConflictError
	return errors.As(err, &ue) || errors.As(err, &ce)
}
