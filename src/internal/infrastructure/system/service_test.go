package system

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
)

var ecoService = entity.GameService{Name: "eco", Unit: "eco-server", ReloadBeforeRestart: true}

func TestServiceManager_Start(t *testing.T) {
	mock := NewMockRunner()
	sm := NewServiceManager(mock, "sudo")

	require.NoError(t, sm.Start(context.Background(), ecoService))
	assert.Equal(t, []string{
		"sudo systemctl start eco-server",
		"sudo systemctl enable eco-server",
	}, mock.Lines())
}

func TestServiceManager_Stop(t *testing.T) {
	mock := NewMockRunner()
	sm := NewServiceManager(mock, "")

	require.NoError(t, sm.Stop(context.Background(), ecoService))
	assert.Equal(t, []string{
		"systemctl stop eco-server",
		"systemctl disable eco-server",
	}, mock.Lines())
}

func TestServiceManager_RestartReloadsFirst(t *testing.T) {
	mock := NewMockRunner()
	sm := NewServiceManager(mock, "sudo")

	require.NoError(t, sm.Restart(context.Background(), ecoService))
	assert.Equal(t, []string{
		"sudo systemctl daemon-reload",
		"sudo systemctl restart eco-server",
	}, mock.Lines())

	mock.Reset()
	require.NoError(t, sm.Restart(context.Background(), entity.GameService{Unit: "core-keeper-server"}))
	assert.Equal(t, []string{"sudo systemctl restart core-keeper-server"}, mock.Lines())
}

func TestServiceManager_StartStopsOnFailure(t *testing.T) {
	mock := NewMockRunner()
	mock.FailOn["systemctl start"] = 1
	sm := NewServiceManager(mock, "sudo")

	err := sm.Start(context.Background(), ecoService)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCommand))
	assert.Len(t, mock.Commands, 1, "enable must not run after a failed start")
}

func TestServiceManager_Tail(t *testing.T) {
	mock := NewMockRunner()
	mock.StreamOutput = "server started\n"
	var out bytes.Buffer
	sm := NewServiceManager(mock, "sudo").WithOutput(&out, &out)

	require.NoError(t, sm.Tail(context.Background(), entity.GameService{Unit: "eco-server"}))
	require.NoError(t, sm.Tail(context.Background(), entity.GameService{Unit: "coilysiren-backend", SudoJournal: true}))

	assert.Equal(t, []string{
		"journalctl -u eco-server -f",
		"sudo journalctl -u coilysiren-backend -f",
	}, mock.Lines())
	assert.Contains(t, out.String(), "server started")
}

func TestServiceManager_RejectsBadUnit(t *testing.T) {
	mock := NewMockRunner()
	sm := NewServiceManager(mock, "sudo")

	assert.Error(t, sm.Start(context.Background(), entity.GameService{Unit: "eco; reboot"}))
	assert.Empty(t, mock.Commands)
}
