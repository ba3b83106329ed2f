package service

import (
	"context"
	"path/filepath"

	"github.com/kodflow/gameops/src/internal/infrastructure/system"
	"github.com/kodflow/gameops/src/internal/setup"
)

// BackendUnitFile is the unit file installed by the backend restart task.
var BackendUnitFile = filepath.Join(setup.UnitsDir, "coilysiren-backend.service")

// BackendServer is the web backend. Its restart reinstalls the unit file first.
type BackendServer struct {
	*GameServer
	installer *setup.UnitInstaller
	unitFile  string
}

// NewBackendServer creates the backend lifecycle driver.
func NewBackendServer(services *system.ServiceManager, installer *setup.UnitInstaller) *BackendServer {
	return &BackendServer{
		GameServer: NewGameServer(Backend, services),
		installer:  installer,
		unitFile:   BackendUnitFile,
	}
}

// Restart installs the backend unit file, reloads systemd and restarts the unit.
func (b *BackendServer) Restart(ctx context.Context) error {
	return b.installer.InstallAndRestart(ctx, b.unitFile)
}

// Core holds host-wide maintenance tasks.
type Core struct {
	installer  *setup.UnitInstaller
	scriptsDir string
	unitsDir   string
}

// NewCore creates the core task set working from the current directory layout.
func NewCore(installer *setup.UnitInstaller) *Core {
	return &Core{installer: installer, scriptsDir: setup.ScriptsDir, unitsDir: setup.UnitsDir}
}

// SystemdRestart installs every unit from the units directory and brings each one up.
func (c *Core) SystemdRestart(ctx context.Context) ([]string, error) {
	return c.installer.RestartAll(ctx, c.scriptsDir, c.unitsDir)
}
