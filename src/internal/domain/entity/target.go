// Package entity defines the value records passed between gameops components.
package entity

// OperatingSystem is the platform family a server install lives on.
type OperatingSystem string

// Supported platform families.
const (
	OSWindows OperatingSystem = "windows"
	OSLinux   OperatingSystem = "linux"
)

// ServerTarget describes where the game server is installed and how it is launched.
// It is derived once per invocation and never mutated afterwards.
type ServerTarget struct {
	OS          OperatingSystem
	InstallPath string
	BinaryName  string
}

// GameService is a server managed by the local service manager.
type GameService struct {
	Name string
	Unit string
	// ReloadBeforeRestart runs daemon-reload ahead of restart.
	ReloadBeforeRestart bool
	// SudoJournal runs journalctl through the privilege command.
	SudoJournal bool
}

// CommandResult is the outcome of one external command.
type CommandResult struct {
	Command  string
	ExitCode int
	Output   string
}
