package system

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
)

// MockRunner records commands instead of executing them.
type MockRunner struct {
	mu sync.Mutex

	// Commands records every command passed to Run or Stream.
	Commands []command.Command
	// Outputs maps a command's Shell() line to the output returned for it.
	Outputs map[string]string
	// FailOn maps a substring of the Shell() line to the exit code the command fails with.
	FailOn map[string]int
	// StreamOutput is written to stdout by Stream.
	StreamOutput string
}

// NewMockRunner creates an empty mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Outputs: make(map[string]string),
		FailOn:  make(map[string]int),
	}
}

// Run records cmd and returns the configured output or failure.
func (m *MockRunner) Run(ctx context.Context, cmd command.Command) (entity.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = append(m.Commands, cmd)
	line := cmd.Shell()
	result := entity.CommandResult{Command: cmd.String(), Output: m.Outputs[line]}

	select {
	case <-ctx.Done():
		result.ExitCode = -1
		return result, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if code, ok := m.failure(line); ok {
		result.ExitCode = code
		return result, &errs.CommandError{Command: cmd.String(), ExitCode: code, Output: "mock failure"}
	}
	return result, nil
}

// Stream records cmd and writes StreamOutput to stdout.
func (m *MockRunner) Stream(ctx context.Context, cmd command.Command, stdout, _ io.Writer) error {
	_, err := m.Run(ctx, cmd)
	if err == nil && stdout != nil && m.StreamOutput != "" {
		_, _ = io.WriteString(stdout, m.StreamOutput)
	}
	return err
}

func (m *MockRunner) failure(line string) (int, bool) {
	for substr, code := range m.FailOn {
		if strings.Contains(line, substr) {
			return code, true
		}
	}
	return 0, false
}

// Lines returns the shell lines of every recorded command.
func (m *MockRunner) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		lines[i] = c.Shell()
	}
	return lines
}

// Reset clears recorded commands and configured behavior.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = nil
	m.Outputs = make(map[string]string)
	m.FailOn = make(map[string]int)
	m.StreamOutput = ""
}
