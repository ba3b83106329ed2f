package system

import (
	"context"
	"fmt"
	"io"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
)

// ServiceManager issues systemd lifecycle commands through a Runner.
type ServiceManager struct {
	runner       Runner
	privilegeCmd string
	stdout       io.Writer
	stderr       io.Writer
}

// NewServiceManager creates a service manager. privilegeCmd is "sudo", "doas" or empty.
func NewServiceManager(runner Runner, privilegeCmd string) *ServiceManager {
	return &ServiceManager{runner: runner, privilegeCmd: privilegeCmd}
}

// WithOutput directs streamed output (journal tails) to the given writers.
func (s *ServiceManager) WithOutput(stdout, stderr io.Writer) *ServiceManager {
	out := *s
	out.stdout = stdout
	out.stderr = stderr
	return &out
}

func (s *ServiceManager) systemctl(ctx context.Context, args ...string) error {
	cmd := Privileged(s.privilegeCmd, command.New("systemctl", args...))
	if _, err := s.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("systemctl %s: %w", args[0], err)
	}
	return nil
}

func (s *ServiceManager) unitCommand(ctx context.Context, verb, unit string) error {
	if err := command.ValidateUnit(unit); err != nil {
		return err
	}
	return s.systemctl(ctx, verb, unit)
}

// DaemonReload reloads unit files.
func (s *ServiceManager) DaemonReload(ctx context.Context) error {
	return s.systemctl(ctx, "daemon-reload")
}

// Enable enables unit at boot.
func (s *ServiceManager) Enable(ctx context.Context, unit string) error {
	return s.unitCommand(ctx, "enable", unit)
}

// StartUnit starts unit without enabling it.
func (s *ServiceManager) StartUnit(ctx context.Context, unit string) error {
	return s.unitCommand(ctx, "start", unit)
}

// RestartUnit restarts unit.
func (s *ServiceManager) RestartUnit(ctx context.Context, unit string) error {
	return s.unitCommand(ctx, "restart", unit)
}

// Start starts and enables the service.
func (s *ServiceManager) Start(ctx context.Context, svc entity.GameService) error {
	if err := s.unitCommand(ctx, "start", svc.Unit); err != nil {
		return err
	}
	return s.unitCommand(ctx, "enable", svc.Unit)
}

// Stop stops and disables the service.
func (s *ServiceManager) Stop(ctx context.Context, svc entity.GameService) error {
	if err := s.unitCommand(ctx, "stop", svc.Unit); err != nil {
		return err
	}
	return s.unitCommand(ctx, "disable", svc.Unit)
}

// Restart restarts the service, reloading unit files first when the service asks for it.
func (s *ServiceManager) Restart(ctx context.Context, svc entity.GameService) error {
	if svc.ReloadBeforeRestart {
		if err := s.DaemonReload(ctx); err != nil {
			return err
		}
	}
	return s.unitCommand(ctx, "restart", svc.Unit)
}

// Tail follows the service journal until the command exits or ctx is cancelled.
func (s *ServiceManager) Tail(ctx context.Context, svc entity.GameService) error {
	if err := command.ValidateUnit(svc.Unit); err != nil {
		return err
	}
	cmd := command.New("journalctl", "-u", svc.Unit, "-f")
	if svc.SudoJournal {
		cmd = Privileged(s.privilegeCmd, cmd)
	}
	return s.runner.Stream(ctx, cmd, s.stdout, s.stderr)
}
