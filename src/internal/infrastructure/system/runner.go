// Package system runs external commands and drives the local service manager.
package system

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// Runner executes commands either locally or on a remote host.
type Runner interface {
	// Run executes cmd and captures its combined output.
	Run(ctx context.Context, cmd command.Command) (entity.CommandResult, error)
	// Stream executes cmd with output attached to the given writers.
	Stream(ctx context.Context, cmd command.Command, stdout, stderr io.Writer) error
}

// LocalRunner runs commands on this machine.
type LocalRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
}

// NewLocalRunner creates a runner for the current working directory.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// InDir returns a runner that executes commands from dir.
func (r *LocalRunner) InDir(dir string) *LocalRunner {
	return &LocalRunner{Dir: dir}
}

func (r *LocalRunner) build(ctx context.Context, cmd command.Command) (*exec.Cmd, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to run command: %w", err)
	}
	c := exec.CommandContext(ctx, cmd.Name, cmd.Argv()...) //nolint:gosec // argv built by command package
	c.Dir = r.Dir
	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}
	return c, nil
}

// Run executes cmd and captures its combined output.
func (r *LocalRunner) Run(ctx context.Context, cmd command.Command) (entity.CommandResult, error) {
	c, err := r.build(ctx, cmd)
	if err != nil {
		return entity.CommandResult{Command: cmd.String(), ExitCode: -1}, err
	}

	logger.WithField("command", cmd.String()).Info("Running command")
	output, err := c.CombinedOutput()
	result := entity.CommandResult{
		Command:  cmd.String(),
		ExitCode: c.ProcessState.ExitCode(),
		Output:   string(output),
	}
	if err != nil {
		return result, errs.NewCommandError(cmd.String(), output, err)
	}
	return result, nil
}

// Stream executes cmd with its output attached to stdout and stderr.
func (r *LocalRunner) Stream(ctx context.Context, cmd command.Command, stdout, stderr io.Writer) error {
	c, err := r.build(ctx, cmd)
	if err != nil {
		return err
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	var tail bytes.Buffer
	c.Stdout = stdout
	c.Stderr = io.MultiWriter(stderr, &limitedBuffer{buf: &tail, max: 8 << 10})

	logger.WithField("command", cmd.String()).Info("Running command")
	if err := c.Run(); err != nil {
		return errs.NewCommandError(cmd.String(), tail.Bytes(), err)
	}
	return nil
}

// limitedBuffer keeps at most max bytes of stderr for error reporting.
type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}

// DetectPrivilegeCommand returns the first available privilege escalation tool.
func DetectPrivilegeCommand() string {
	if os.Geteuid() == 0 {
		return ""
	}
	for _, cmd := range []string{"doas", "sudo"} {
		if _, err := exec.LookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}

// Privileged wraps cmd with the privilege command, or returns it unchanged when there is none.
func Privileged(privilegeCmd string, cmd command.Command) command.Command {
	switch privilegeCmd {
	case "doas", "sudo":
		return cmd.Prefix(privilegeCmd)
	default:
		return cmd
	}
}
