package main

import (
	"context"
	"io"
	"sync"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/service"
	"github.com/kodflow/gameops/src/internal/infrastructure/cloud"
	"github.com/kodflow/gameops/src/internal/infrastructure/config"
	"github.com/kodflow/gameops/src/internal/infrastructure/gitsync"
	"github.com/kodflow/gameops/src/internal/infrastructure/rcon"
	"github.com/kodflow/gameops/src/internal/infrastructure/remote"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
	"github.com/kodflow/gameops/src/internal/setup"
)

// env holds the collaborators built from the loaded configuration. AWS clients
// are created on first use so tasks that never touch the cloud need no credentials.
type env struct {
	cfg       *config.Config
	local     *system.LocalRunner
	privilege string
	services  *system.ServiceManager

	awsOnce sync.Once
	clients *cloud.Clients
	awsErr  error
}

func (e *env) load(cfg *config.Config, stdout, stderr io.Writer) {
	e.cfg = cfg
	e.local = system.NewLocalRunner()
	e.privilege = system.DetectPrivilegeCommand()
	e.services = system.NewServiceManager(e.local, e.privilege).WithOutput(stdout, stderr)
}

func (e *env) aws(ctx context.Context) (*cloud.Clients, error) {
	e.awsOnce.Do(func() {
		awsCfg, err := cloud.LoadConfig(ctx, e.cfg.AWS.Region)
		if err != nil {
			e.awsErr = err
			return
		}
		e.clients = cloud.NewClients(awsCfg)
	})
	return e.clients, e.awsErr
}

// The adapters below defer AWS client creation until a task step needs it.

type lazySecrets struct{ e *env }

func (s lazySecrets) Get(ctx context.Context, name string) (entity.SecretValue, error) {
	c, err := s.e.aws(ctx)
	if err != nil {
		return entity.SecretValue{}, err
	}
	return cloud.NewSecretStore(c.SSM).Get(ctx, name)
}

type lazyHosts struct{ e *env }

func (h lazyHosts) Resolve(ctx context.Context, name string) (string, error) {
	c, err := h.e.aws(ctx)
	if err != nil {
		return "", err
	}
	return cloud.NewHostResolver(c.EC2).Resolve(ctx, name)
}

type lazyUploader struct{ e *env }

func (u lazyUploader) Upload(ctx context.Context, bucket, key, path string) error {
	c, err := u.e.aws(ctx)
	if err != nil {
		return err
	}
	return cloud.NewUploader(c.S3).Upload(ctx, bucket, key, path)
}

type lazyDNS struct{ e *env }

func (d lazyDNS) PointA(ctx context.Context, record, ip string) error {
	c, err := d.e.aws(ctx)
	if err != nil {
		return err
	}
	return cloud.NewDNS(c.Route53, d.e.cfg.AWS.HostedZoneID).PointA(ctx, record, ip)
}

func (e *env) eco() *service.Eco {
	cfg := e.cfg
	return service.NewEco(service.EcoConfig{
		StagingDir: cfg.StagingDir,
		Repos: service.EcoRepos{
			Configs:     cfg.Repos.Configs,
			PrivateMods: cfg.Repos.PrivateMods,
			PublicMods:  cfg.Repos.PublicMods,
			Assets:      cfg.Repos.Assets,
		},
		PublicModsFolder:  cfg.PublicModsFolder,
		PrivateModsFolder: cfg.PrivateModsFolder,
		ProtectedDir:      cfg.ProtectedDir,
		LinkExtensions:    cfg.LinkExtensions,
		BackupBucket:      cfg.AWS.BackupBucket,
	}, service.EcoDeps{
		Target:   cfg.ServerTarget,
		Services: e.services,
		Syncer:   gitsync.NewSyncer(e.local),
		Secrets:  lazySecrets{e},
		Console:  rcon.NewClient(cfg.RCON.Host, cfg.RCON.Port, cfg.RCON.Password, cfg.RCON.Timeout),
		Uploader: lazyUploader{e},
		RunnerIn: func(dir string) system.Runner { return e.local.InDir(dir) },
	})
}

func (e *env) installer() *setup.UnitInstaller {
	return setup.NewUnitInstaller(e.local, e.services, e.privilege)
}

func (e *env) server(svc entity.GameService) *service.GameServer {
	return service.NewGameServer(svc, e.services)
}

func (e *env) backend() *service.BackendServer {
	return service.NewBackendServer(e.services, e.installer())
}

func (e *env) core() *service.Core {
	return service.NewCore(e.installer())
}

func (e *env) kubernetes() *service.Kubernetes {
	return service.NewKubernetes(e.local, lazySecrets{e})
}

func (e *env) remote() *service.Remote {
	ssh := e.cfg.SSH
	return service.NewRemote(lazyHosts{e}, func(host string) service.RemoteSession {
		return remote.NewClient(host, remote.Config{
			User:           ssh.User,
			Port:           ssh.Port,
			KeyPath:        ssh.KeyPath,
			KnownHostsPath: ssh.KnownHostsPath,
			Timeout:        ssh.Timeout,
		})
	})
}

func (e *env) dns() *service.DNS {
	return service.NewDNS(lazyHosts{e}, lazyDNS{e})
}
