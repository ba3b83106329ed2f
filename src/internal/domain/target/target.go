// Package target resolves where the game server is installed for the current platform.
package target

import (
	"fmt"
	"path"
	"strings"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
)

// Platform install constants.
const (
	WindowsInstallPath = `C:\Program Files (x86)\Steam\steamapps\common\Eco\Eco_Data\Server`
	WindowsBinary      = "EcoServer.exe"
	LinuxBinary        = "./EcoServer"
)

// LinuxInstallPath returns the Steam install path for user on linux.
func LinuxInstallPath(user string) string {
	return path.Join("/home", user, "Steam", "steamapps", "common", "EcoServer")
}

// Resolve maps an OS-identifying value to a ServerTarget.
//
// Values containing "windows" or "linux" (case-insensitive) select that platform.
// Anything else is an ErrConfiguration when strict is set and falls back to linux otherwise.
func Resolve(osEnv, user string, strict bool) (entity.ServerTarget, error) {
	value := strings.ToLower(strings.TrimSpace(osEnv))

	switch {
	case strings.Contains(value, "windows"):
		return entity.ServerTarget{
			OS:          entity.OSWindows,
			InstallPath: WindowsInstallPath,
			BinaryName:  WindowsBinary,
		}, nil
	case strings.Contains(value, "linux"):
	case strict:
		return entity.ServerTarget{}, fmt.Errorf("%w: unsupported platform %q (want windows or linux)", errs.ErrConfiguration, osEnv)
	}

	if strings.TrimSpace(user) == "" {
		return entity.ServerTarget{}, fmt.Errorf("%w: a username is required to build the linux install path", errs.ErrConfiguration)
	}

	return entity.ServerTarget{
		OS:          entity.OSLinux,
		InstallPath: LinuxInstallPath(user),
		BinaryName:  LinuxBinary,
	}, nil
}

// WithInstallPath returns t with its install path replaced when override is set.
func WithInstallPath(t entity.ServerTarget, override string) entity.ServerTarget {
	if override != "" {
		t.InstallPath = override
	}
	return t
}
