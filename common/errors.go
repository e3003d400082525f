// Package common provides shared constants, types, and utilities
// used across the vpnonline application.
package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for vpnonline operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// ErrIO reports local file read, write or permission failures.
	ErrIO = errors.New("local state error")
	// ErrFetch reports an unreachable definition source or a malformed archive.
	ErrFetch = errors.New("failed to fetch definitions")
	// ErrIndex reports a selection outside the definition list.
	ErrIndex = errors.New("no such definition")
	// ErrLaunch reports a VPN client that cannot be found or executed.
	ErrLaunch = errors.New("failed to launch vpn client")
	// ErrInterrupted reports a connection or prompt cancelled by the user.
	ErrInterrupted = errors.New("interrupted")
	// ErrUsage reports an invalid combination of command line flags.
	ErrUsage = errors.New("invalid usage")

	// ErrCredentialsNotFound is returned when no credentials are stored.
	ErrCredentialsNotFound = errors.New("credentials not found")
	// ErrInvalidConfig is returned for configuration values that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

// KindError attaches one of the sentinel kinds above to a cause, so that
// both errors.Is(err, kind) and errors.Is(err, cause) hold.
func KindError(kind error, cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}

// ExitCode maps an error returned by a command to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		return 2
	case errors.Is(err, ErrInterrupted):
		return 130
	default:
		return 1
	}
}
