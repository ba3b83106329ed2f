// Package errs defines the error taxonomy shared by every gameops task.
//
// Errors are never recovered locally. Components wrap one of the sentinels below
// with context and the CLI reports the chain verbatim before exiting.
package errs

import (
	"errors"
	"fmt"
	"os/exec"
)

// Sentinel error kinds. Match them with errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrSync             = errors.New("sync error")
	ErrNotFound         = errors.New("not found")
	ErrTargetResolution = errors.New("target resolution error")
	ErrSecretNotFound   = errors.New("secret not found")
	ErrCommand          = errors.New("command error")
)

// CommandError wraps a non-zero exit from an external process.
type CommandError struct {
	// Command is the printable command line with secrets redacted.
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", e.Command, e.ExitCode)
	if e.Err != nil && e.ExitCode < 0 {
		msg = fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying process error.
func (e *CommandError) Unwrap() error { return e.Err }

// Is reports ErrCommand as a match so callers can classify without a type assertion.
func (e *CommandError) Is(target error) bool { return target == ErrCommand }

// NewCommandError builds a CommandError, pulling the exit code out of *exec.ExitError when present.
func NewCommandError(command string, output []byte, err error) *CommandError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	var coder interface{ ExitStatus() int }
	if errors.As(err, &coder) {
		code = coder.ExitStatus()
	}
	return &CommandError{
		Command:  command,
		ExitCode: code,
		Output:   string(output),
		Err:      err,
	}
}

// ExitCode returns the process exit code to report for err: the failing command's
// own exit code when there is one, otherwise 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return cmdErr.ExitCode
	}
	return 1
}
