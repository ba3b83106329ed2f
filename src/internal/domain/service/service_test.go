package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/console"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

func quiet(t *testing.T) {
	t.Helper()
	console.SetOutput(io.Discard)
	t.Cleanup(func() { console.SetOutput(nil) })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

type fakeSecrets struct {
	values map[string]string
	asked  []string
}

func (f *fakeSecrets) Get(_ context.Context, name string) (entity.SecretValue, error) {
	f.asked = append(f.asked, name)
	v, ok := f.values[name]
	if !ok {
		return entity.SecretValue{}, errs.ErrSecretNotFound
	}
	return entity.NewSecretValue(v), nil
}

type fakeHosts struct {
	ips map[string]string
}

func (f *fakeHosts) Resolve(_ context.Context, name string) (string, error) {
	ip, ok := f.ips[name]
	if !ok {
		return "", errs.ErrTargetResolution
	}
	return ip, nil
}

func TestGameServer_RestartThenTail(t *testing.T) {
	mock := system.NewMockRunner()
	g := NewGameServer(EcoServer, system.NewServiceManager(mock, "sudo"))
	ctx := context.Background()

	require.NoError(t, g.Restart(ctx))
	require.NoError(t, g.Tail(ctx))

	assert.Equal(t, []string{
		"sudo systemctl daemon-reload",
		"sudo systemctl restart eco-server",
		"journalctl -u eco-server -f",
	}, mock.Lines())
}

func TestGameServer_ChainStopsOnFailedRestart(t *testing.T) {
	mock := system.NewMockRunner()
	mock.FailOn["restart"] = 3
	g := NewGameServer(CoreKeeper, system.NewServiceManager(mock, "sudo"))
	ctx := context.Background()

	err := g.Restart(ctx)
	if err == nil {
		err = g.Tail(ctx)
	}
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCommand))
	assert.Equal(t, 3, errs.ExitCode(err))
	assert.Equal(t, []string{"sudo systemctl restart core-keeper-server"}, mock.Lines())
}

func TestGameServer_StartStop(t *testing.T) {
	mock := system.NewMockRunner()
	g := NewGameServer(Icarus, system.NewServiceManager(mock, "sudo"))
	ctx := context.Background()

	require.NoError(t, g.Start(ctx))
	require.NoError(t, g.Stop(ctx))

	assert.Equal(t, Icarus, g.Service())
	assert.Equal(t, []string{
		"sudo systemctl start icarus-server",
		"sudo systemctl enable icarus-server",
		"sudo systemctl stop icarus-server",
		"sudo systemctl disable icarus-server",
	}, mock.Lines())
}

func TestBackend_TailUsesPrivilege(t *testing.T) {
	mock := system.NewMockRunner()
	g := NewGameServer(Backend, system.NewServiceManager(mock, "sudo"))

	require.NoError(t, g.Tail(context.Background()))
	assert.Equal(t, []string{"sudo journalctl -u coilysiren-backend -f"}, mock.Lines())
}
