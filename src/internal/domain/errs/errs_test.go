package errs

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct{ code int }

func (s statusErr) Error() string   { return fmt.Sprintf("exit status %d", s.code) }
func (s statusErr) ExitStatus() int { return s.code }

func TestCommandError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("restart eco-server: %w", NewCommandError("systemctl restart eco-server", []byte("unit failed\n"), statusErr{code: 5}))

	assert.True(t, errors.Is(err, ErrCommand))
	assert.False(t, errors.Is(err, ErrSync))

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 5, cmdErr.ExitCode)
	assert.Equal(t, "unit failed\n", cmdErr.Output)
	assert.NotContains(t, err.Error(), "unit failed", "output is reported separately")
}

func TestCommandError_StartFailure(t *testing.T) {
	_, runErr := exec.Command("/nonexistent/gameops-binary").Output()
	require.Error(t, runErr)

	cmdErr := NewCommandError("/nonexistent/gameops-binary", nil, runErr)
	assert.Equal(t, -1, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Error(), "failed:")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(fmt.Errorf("%w: bad OS", ErrConfiguration)))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", NewCommandError("git clone", nil, statusErr{code: 3}))))
	assert.Equal(t, 1, ExitCode(NewCommandError("ssh", nil, errors.New("dial failed"))))
}
