// Package service implements the gameops tasks on top of the infrastructure
// packages. Every task is a linear chain of steps that stops at the first error.
package service

import (
	"context"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

// SecretGetter reads decrypted secrets by name.
type SecretGetter interface {
	Get(ctx context.Context, name string) (entity.SecretValue, error)
}

// HostResolver maps a host selector to an address.
type HostResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// RepoSyncer materializes a repository into a staging directory.
type RepoSyncer interface {
	Sync(ctx context.Context, url, ref, dest string, stripMetadata bool) (entity.ModBundle, error)
}

// ConsoleClient sends admin commands to a running game server.
type ConsoleClient interface {
	Announce(ctx context.Context, msg string) (string, error)
	Alert(ctx context.Context, msg string) (string, error)
	ListPlayers(ctx context.Context) (string, error)
	Save(ctx context.Context) (string, error)
}

// Uploader stores a local file in an object bucket.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, path string) error
}

// DNSWriter points a record at an address.
type DNSWriter interface {
	PointA(ctx context.Context, record, ip string) error
}

// Well-known systemd-managed servers.
var (
	EcoServer  = entity.GameService{Name: "eco", Unit: "eco-server", ReloadBeforeRestart: true}
	CoreKeeper = entity.GameService{Name: "corekeeper", Unit: "core-keeper-server"}
	Icarus     = entity.GameService{Name: "icarus", Unit: "icarus-server", ReloadBeforeRestart: true}
	Backend    = entity.GameService{Name: "backend", Unit: "coilysiren-backend", SudoJournal: true}
)

// GameServer drives the lifecycle of one systemd-managed server.
type GameServer struct {
	svc      entity.GameService
	services *system.ServiceManager
}

// NewGameServer creates a lifecycle driver for svc.
func NewGameServer(svc entity.GameService, services *system.ServiceManager) *GameServer {
	return &GameServer{svc: svc, services: services}
}

// Service returns the managed service description.
func (g *GameServer) Service() entity.GameService { return g.svc }

// Start starts the unit and enables it at boot.
func (g *GameServer) Start(ctx context.Context) error { return g.services.Start(ctx, g.svc) }

// Stop stops the unit and disables it at boot.
func (g *GameServer) Stop(ctx context.Context) error { return g.services.Stop(ctx, g.svc) }

// Restart restarts the unit.
func (g *GameServer) Restart(ctx context.Context) error { return g.services.Restart(ctx, g.svc) }

// Tail follows the unit journal.
func (g *GameServer) Tail(ctx context.Context) error { return g.services.Tail(ctx, g.svc) }
