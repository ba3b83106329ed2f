// Package setup installs systemd unit files from a working tree and brings the
// units up.
package setup

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"

	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/console"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

// Installation defaults.
const (
	SystemdDir = "/etc/systemd/system"
	UnitsDir   = "systemd"
	ScriptsDir = "scripts"
)

var unitSuffixes = map[string]bool{
	".service": true,
	".timer":   true,
	".socket":  true,
	".target":  true,
	".path":    true,
	".mount":   true,
}

// UnitInstaller copies unit files into the systemd directory and activates them.
type UnitInstaller struct {
	fs           FileSystem
	runner       system.Runner
	services     *system.ServiceManager
	privilegeCmd string
	systemdDir   string
}

// NewUnitInstaller creates an installer that runs privileged commands through runner.
func NewUnitInstaller(runner system.Runner, services *system.ServiceManager, privilegeCmd string) *UnitInstaller {
	return &UnitInstaller{
		fs:           RealFileSystem{},
		runner:       runner,
		services:     services,
		privilegeCmd: privilegeCmd,
		systemdDir:   SystemdDir,
	}
}

// WithFileSystem replaces the file system (for testing).
func (i *UnitInstaller) WithFileSystem(fs FileSystem) *UnitInstaller {
	i.fs = fs
	return i
}

// WithSystemdDir changes the destination directory.
func (i *UnitInstaller) WithSystemdDir(dir string) *UnitInstaller {
	i.systemdDir = dir
	return i
}

// ValidateUnitFile checks that path names a unit and parses as one.
func (i *UnitInstaller) ValidateUnitFile(path string) (string, error) {
	name := filepath.Base(path)
	if err := command.ValidateUnit(name); err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrConfiguration, err)
	}
	if !unitSuffixes[filepath.Ext(name)] {
		return "", fmt.Errorf("%w: %s is not a unit file", errs.ErrConfiguration, name)
	}

	data, err := i.fs.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrNotFound, path, err)
	}
	opts, err := unit.DeserializeOptions(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: invalid unit file %s: %w", errs.ErrConfiguration, path, err)
	}
	if len(opts) == 0 {
		return "", fmt.Errorf("%w: unit file %s has no options", errs.ErrConfiguration, path)
	}
	return name, nil
}

// Install validates one unit file and copies it into the systemd directory.
func (i *UnitInstaller) Install(ctx context.Context, path string) (string, error) {
	name, err := i.ValidateUnitFile(path)
	if err != nil {
		return "", err
	}
	cp := system.Privileged(i.privilegeCmd, command.New("cp", path, i.systemdDir+"/"))
	if _, err := i.runner.Run(ctx, cp); err != nil {
		return "", fmt.Errorf("failed to install %s: %w", name, err)
	}
	console.Detail("✓ %s", filepath.Join(i.systemdDir, name))
	return name, nil
}

// UnitFiles lists the unit files in dir, sorted. Other files are skipped with a warning.
func (i *UnitInstaller) UnitFiles(dir string) ([]string, error) {
	entries, err := i.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: unit directory %s: %w", errs.ErrNotFound, dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !unitSuffixes[filepath.Ext(e.Name())] {
			console.Warn("Skipping %s: not a unit file", e.Name())
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// InstallAll validates every unit in dir before copying any of them, then reloads systemd.
func (i *UnitInstaller) InstallAll(ctx context.Context, dir string) ([]string, error) {
	files, err := i.UnitFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if _, err := i.ValidateUnitFile(f); err != nil {
			return nil, err
		}
	}

	console.Step("Installing %d unit(s) to %s", len(files), i.systemdDir)
	units := make([]string, 0, len(files))
	for _, f := range files {
		name, err := i.Install(ctx, f)
		if err != nil {
			return units, err
		}
		units = append(units, name)
	}

	if err := i.services.DaemonReload(ctx); err != nil {
		return units, err
	}
	return units, nil
}

// MakeScriptsExecutable adds the execute bits to every file directly under dir.
// A missing directory is skipped.
func (i *UnitInstaller) MakeScriptsExecutable(dir string) error {
	if _, err := i.fs.Stat(dir); err != nil {
		console.Warn("No %s directory, skipping chmod", dir)
		return nil //nolint:nilerr // nothing to do
	}
	entries, err := i.fs.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		path := filepath.Join(dir, e.Name())
		if err := i.fs.Chmod(path, info.Mode().Perm()|0o111); err != nil {
			return fmt.Errorf("failed to make %s executable: %w", path, err)
		}
	}
	return nil
}

// RestartAll makes the scripts executable, installs every unit in unitsDir, then
// enables, starts and restarts each of them in order.
func (i *UnitInstaller) RestartAll(ctx context.Context, scriptsDir, unitsDir string) ([]string, error) {
	if err := i.MakeScriptsExecutable(scriptsDir); err != nil {
		return nil, err
	}
	units, err := i.InstallAll(ctx, unitsDir)
	if err != nil {
		return units, err
	}

	for _, u := range units {
		logger.WithField("unit", u).Info("Activating unit")
		if err := i.services.Enable(ctx, u); err != nil {
			return units, err
		}
		if err := i.services.StartUnit(ctx, u); err != nil {
			return units, err
		}
		if err := i.services.RestartUnit(ctx, u); err != nil {
			return units, err
		}
	}
	console.Success("Activated %s", strings.Join(units, ", "))
	return units, nil
}

// InstallAndRestart installs a single unit file, reloads systemd and restarts the unit.
func (i *UnitInstaller) InstallAndRestart(ctx context.Context, path string) error {
	name, err := i.Install(ctx, path)
	if err != nil {
		return err
	}
	if err := i.services.DaemonReload(ctx); err != nil {
		return err
	}
	return i.services.RestartUnit(ctx, name)
}
