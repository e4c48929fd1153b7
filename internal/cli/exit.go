package cli

import (
	"errors"
	"fmt"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
	// ExitEmpty is returned by commands that found nothing to act on.
	ExitEmpty = 3
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error

	// Printed is set when the error was already written to stderr.
	Printed bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Exitf builds an ExitError with a formatted message.
func Exitf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode extracts the exit code from err. Unknown errors map to ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
