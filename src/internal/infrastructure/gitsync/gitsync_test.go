package gitsync

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

func TestCloneCommand(t *testing.T) {
	assert.Equal(t,
		"git clone --single-branch -v --depth 1 -b main -- git@github.com:coilysiren/eco-mods.git /tmp/mods",
		CloneCommand("git@github.com:coilysiren/eco-mods.git", "main", "/tmp/mods").Shell())
	assert.Equal(t,
		"git clone --single-branch -v --depth 1 -- https://example.com/r.git /tmp/r",
		CloneCommand("https://example.com/r.git", "", "/tmp/r").Shell())
}

func TestSync_RemovesDestinationFirst(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "mods")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "stale"), 0o755))

	mock := system.NewMockRunner()
	bundle, err := NewSyncer(mock).Sync(context.Background(), "git@github.com:coilysiren/eco-mods.git", "", dest, false)
	require.NoError(t, err)

	assert.Equal(t, dest, bundle.LocalStagingPath)
	assert.Equal(t, "git@github.com:coilysiren/eco-mods.git", bundle.SourceRepoURL)
	_, err = os.Stat(filepath.Join(dest, "stale"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	require.Len(t, mock.Commands, 1)
}

func TestSync_CloneFailureIsSyncError(t *testing.T) {
	mock := system.NewMockRunner()
	mock.FailOn["git clone"] = 128

	_, err := NewSyncer(mock).Sync(context.Background(), "git@github.com:x/y.git", "nope", filepath.Join(t.TempDir(), "y"), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSync))
	assert.True(t, errors.Is(err, errs.ErrCommand))
	assert.Equal(t, 128, errs.ExitCode(err))
}

func TestSync_RequiresURL(t *testing.T) {
	_, err := NewSyncer(system.NewMockRunner()).Sync(context.Background(), "", "", t.TempDir(), false)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestSync_LocalRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "Mods"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Mods", "Mod.cs"), []byte("class Mod {}"), 0o644))
	git(t, src, "init", "-q", "-b", "main")
	git(t, src, "add", ".")
	git(t, src, "commit", "-q", "-m", "init")

	dest := filepath.Join(root, "stage")
	syncer := NewSyncer(system.NewLocalRunner())
	for i := 0; i < 2; i++ {
		_, err := syncer.Sync(context.Background(), "file://"+src, "main", dest, true)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "Mods", "Mod.cs"))
	require.NoError(t, err)
	assert.Equal(t, "class Mod {}", string(data))
	_, err = os.Stat(filepath.Join(dest, ".git"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "metadata stripped")
}
