package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/cloud"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/configpatch"
	"github.com/kodflow/gameops/src/internal/infrastructure/console"
	"github.com/kodflow/gameops/src/internal/infrastructure/fsmerge"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

// Layout of the live server tree.
const (
	ModsDir     = "Mods"
	UserCodeDir = "UserCode"
	ConfigsDir  = "Configs"
	StorageDir  = "Storage"
	LogsDir     = "Logs"
)

// Server config documents touched by the eco tasks.
const (
	NetworkConfig        = "Network.eco"
	DiscordLinkConfig    = "DiscordLink.eco"
	DifficultyConfig     = "Difficulty.eco"
	SleepConfig          = "Sleep.eco"
	WorldGeneratorConfig = "WorldGenerator.eco"
)

// EcoRepos holds the repositories synced into staging.
type EcoRepos struct {
	Configs     string
	PrivateMods string
	PublicMods  string
	Assets      string
}

// EcoConfig holds the settings of the eco tasks.
type EcoConfig struct {
	StagingDir        string
	Repos             EcoRepos
	PublicModsFolder  string
	PrivateModsFolder string
	ProtectedDir      string
	LinkExtensions    []string
	BackupBucket      string
}

// EcoDeps wires the eco tasks to their collaborators.
type EcoDeps struct {
	// Target resolves the live server tree. It is called only by tasks that touch it.
	Target   func() (entity.ServerTarget, error)
	Services *system.ServiceManager
	Syncer   RepoSyncer
	Secrets  SecretGetter
	Console  ConsoleClient
	Uploader Uploader
	// RunnerIn returns a runner whose commands start in dir.
	RunnerIn func(dir string) system.Runner
	Now      func() time.Time
}

// Eco implements the tasks of the Eco game server.
type Eco struct {
	*GameServer
	cfg    EcoConfig
	deps   EcoDeps
	merger *fsmerge.Merger
}

// NewEco creates the eco task set.
func NewEco(cfg EcoConfig, deps EcoDeps) *Eco {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if len(cfg.LinkExtensions) == 0 {
		cfg.LinkExtensions = fsmerge.DefaultLinkExtensions
	}
	return &Eco{
		GameServer: NewGameServer(EcoServer, deps.Services),
		cfg:        cfg,
		deps:       deps,
		merger:     fsmerge.NewMerger(cfg.ProtectedDir),
	}
}

func (e *Eco) target() (entity.ServerTarget, error) {
	if e.deps.Target == nil {
		return entity.ServerTarget{}, fmt.Errorf("%w: server target is not configured", errs.ErrConfiguration)
	}
	return e.deps.Target()
}

func (e *Eco) staging(kind string) string {
	return filepath.Join(e.cfg.StagingDir, kind)
}

func (e *Eco) configPath(t entity.ServerTarget, name string) string {
	return filepath.Join(t.InstallPath, ConfigsDir, name)
}

// CopyConfigs syncs the configs repository, replaces the server's .git with the
// synced one and copies every config file except templates into the server.
func (e *Eco) CopyConfigs(ctx context.Context) error {
	t, err := e.target()
	if err != nil {
		return err
	}
	stage := e.staging("configs")

	console.Step("Syncing configs")
	if _, err := e.deps.Syncer.Sync(ctx, e.cfg.Repos.Configs, "", stage, false); err != nil {
		return err
	}

	console.Step("Copying .git to server")
	serverGit := filepath.Join(t.InstallPath, ".git")
	if err := fsmerge.RemoveAll(serverGit); err != nil {
		return err
	}
	if err := fsmerge.CopyTree(filepath.Join(stage, ".git"), serverGit); err != nil {
		return err
	}

	console.Step("Copying configs to server")
	entries, err := os.ReadDir(filepath.Join(stage, ConfigsDir))
	if err != nil {
		return fmt.Errorf("%w: synced configs have no %s directory: %w", errs.ErrNotFound, ConfigsDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".template") {
			continue
		}
		src := filepath.Join(stage, ConfigsDir, entry.Name())
		dst := e.configPath(t, entry.Name())
		console.Detail("%s => %s", src, dst)
		if err := fsmerge.CopyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// CopyPrivateMods syncs the private mods repository at branch and merges it into the server.
func (e *Eco) CopyPrivateMods(ctx context.Context, branch string) error {
	return e.copyMods(ctx, e.cfg.Repos.PrivateMods, branch)
}

// CopyPublicMods syncs the public mods repository at branch and merges it into the server.
func (e *Eco) CopyPublicMods(ctx context.Context, branch string) error {
	return e.copyMods(ctx, e.cfg.Repos.PublicMods, branch)
}

func (e *Eco) copyMods(ctx context.Context, repo, branch string) error {
	t, err := e.target()
	if err != nil {
		return err
	}
	stage := e.staging("mods")

	console.Step("Syncing mods from %s", repo)
	bundle, err := e.deps.Syncer.Sync(ctx, repo, branch, stage, false)
	if err != nil {
		return err
	}
	if info, err := os.Stat(filepath.Join(bundle.LocalStagingPath, ModsDir, UserCodeDir)); err == nil && info.IsDir() {
		bundle.IsUserCode = true
	}
	return e.mergeMods(bundle, t.InstallPath)
}

// mergeMods replaces each top-level mod and, for user code bundles, each UserCode
// mod, then overlays the bundle's Configs onto the server Configs.
func (e *Eco) mergeMods(bundle entity.ModBundle, server string) error {
	stage := bundle.LocalStagingPath
	modsRoot := filepath.Join(stage, ModsDir)
	entries, err := os.ReadDir(modsRoot)
	if err != nil {
		return fmt.Errorf("%w: synced bundle has no %s directory: %w", errs.ErrNotFound, ModsDir, err)
	}

	console.Step("Copying mods to server")
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), UserCodeDir) {
			continue
		}
		origin := filepath.Join(modsRoot, entry.Name())
		if err := e.merger.MergeTree(origin, filepath.Join(server, ModsDir, entry.Name()), fsmerge.Replace); err != nil {
			return err
		}
	}

	if bundle.IsUserCode {
		userCode := filepath.Join(modsRoot, UserCodeDir)
		entries, err := os.ReadDir(userCode)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", userCode, err)
		}
		console.Step("Copying user code mods to server")
		for _, entry := range entries {
			origin := filepath.Join(userCode, entry.Name())
			target := filepath.Join(server, ModsDir, UserCodeDir, entry.Name())
			if err := e.merger.MergeTree(origin, target, fsmerge.Replace); err != nil {
				return err
			}
		}
	}

	if _, err := os.Stat(filepath.Join(stage, ConfigsDir)); err == nil {
		console.Step("Copying mod configs to server")
		if err := e.merger.MergeTree(filepath.Join(stage, ConfigsDir), filepath.Join(server, ConfigsDir), fsmerge.Overlay); err != nil {
			return err
		}
	}
	return nil
}

// CopyAssets syncs the assets repository without metadata and merges each
// build's Assets directory into the matching UserCode mod.
func (e *Eco) CopyAssets(ctx context.Context, branch string) error {
	t, err := e.target()
	if err != nil {
		return err
	}
	stage := e.staging("assets")

	console.Step("Syncing assets")
	if _, err := e.deps.Syncer.Sync(ctx, e.cfg.Repos.Assets, branch, stage, true); err != nil {
		return err
	}

	builds := filepath.Join(stage, "Builds", ModsDir, UserCodeDir)
	entries, err := os.ReadDir(builds)
	if err != nil {
		return fmt.Errorf("%w: synced assets have no %s: %w", errs.ErrNotFound, builds, err)
	}
	console.Step("Copying assets to server")
	for _, entry := range entries {
		origin := filepath.Join(builds, entry.Name(), "Assets")
		target := filepath.Join(t.InstallPath, ModsDir, UserCodeDir, entry.Name(), "Assets")
		if err := e.merger.MergeTree(origin, target, fsmerge.Replace); err != nil {
			return err
		}
	}
	return nil
}

// SymlinkPublicMod links a mod from the public mods working tree into the server.
func (e *Eco) SymlinkPublicMod(mod string) ([]entity.SymlinkEntry, error) {
	return e.symlinkMod(e.cfg.PublicModsFolder, mod)
}

// SymlinkPrivateMod links a mod from the private mods working tree into the server.
func (e *Eco) SymlinkPrivateMod(mod string) ([]entity.SymlinkEntry, error) {
	return e.symlinkMod(e.cfg.PrivateModsFolder, mod)
}

func validModName(mod string) error {
	if mod == "" || mod == "." || mod == ".." || strings.ContainsAny(mod, `/\`) {
		return fmt.Errorf("%w: invalid mod name %q", errs.ErrConfiguration, mod)
	}
	return nil
}

func (e *Eco) symlinkMod(folder, mod string) ([]entity.SymlinkEntry, error) {
	if err := validModName(mod); err != nil {
		return nil, err
	}
	t, err := e.target()
	if err != nil {
		return nil, err
	}

	source, err := filepath.Abs(filepath.Join(folder, ModsDir, UserCodeDir, mod))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", mod, err)
	}
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s does not exist", errs.ErrNotFound, source)
	}

	target := filepath.Join(t.InstallPath, ModsDir, UserCodeDir, mod)
	if info, err := os.Lstat(target); err == nil && info.IsDir() {
		console.Step("Removing existing mod folder %s", target)
		if err := fsmerge.RemoveAll(target); err != nil {
			return nil, err
		}
	}

	console.Step("Symlinking %s", mod)
	links, err := fsmerge.LinkTree(source, target, e.cfg.LinkExtensions)
	for _, l := range links {
		console.Detail("%s", l)
	}
	return links, err
}

// sleepSettings is written whole to Sleep.eco; field order is the file order.
type sleepSettings struct {
	AllowFastForward           bool
	SleepTimePassMultiplier    int
	TimeToReachMaximumTimeRate int
}

// PrepareLocalRun rewrites the server configs for a private local session.
func (e *Eco) PrepareLocalRun(t entity.ServerTarget) error {
	console.Step("Modifying %s to reflect private server", NetworkConfig)
	if err := configpatch.Patch(e.configPath(t, NetworkConfig), configpatch.Mutations{
		"PublicServer":  false,
		"Name":          "localhost",
		"IPAddress":     "Any",
		"RemoteAddress": "localhost:3000",
		"WebServerUrl":  "http://localhost:3001",
	}); err != nil {
		return err
	}

	console.Step("Modifying %s to remove BotToken", DiscordLinkConfig)
	if err := configpatch.Patch(e.configPath(t, DiscordLinkConfig), configpatch.Mutations{
		"BotToken": "",
	}); err != nil {
		return err
	}

	console.Step("Modifying %s to speed up world", DifficultyConfig)
	if err := configpatch.Patch(e.configPath(t, DifficultyConfig), configpatch.Mutations{
		"GameSettings.GameSpeed": "VeryFast",
	}); err != nil {
		return err
	}

	console.Step("Creating %s to allow time to fast forward", SleepConfig)
	return configpatch.Write(e.configPath(t, SleepConfig), sleepSettings{
		AllowFastForward:           true,
		SleepTimePassMultiplier:    1000,
		TimeToReachMaximumTimeRate: 5,
	})
}

// RunCommand builds the server start command. The token travels as a secret argument.
func RunCommand(t entity.ServerTarget, token entity.SecretValue) command.Command {
	bin := t.BinaryName
	if !filepath.IsAbs(bin) {
		bin = filepath.Join(t.InstallPath, bin)
	}
	cmd := command.New(bin)
	if !token.Empty() {
		cmd = cmd.With(command.Secret("-userToken=" + token.Reveal()))
	}
	return cmd
}

// Run patches the configs for a local session and runs the server in the
// foreground. Offline runs skip the API token.
func (e *Eco) Run(ctx context.Context, offline bool) error {
	t, err := e.target()
	if err != nil {
		return err
	}
	if err := e.PrepareLocalRun(t); err != nil {
		return err
	}

	var token entity.SecretValue
	if !offline {
		console.Step("Getting API key")
		token, err = e.deps.Secrets.Get(ctx, cloud.EcoServerTokenParam)
		if err != nil {
			return err
		}
	}

	cmd := RunCommand(t, token)
	console.Step("Starting %s", cmd)
	return e.deps.RunnerIn(t.InstallPath).Stream(ctx, cmd, nil, nil)
}

func (e *Eco) clearWorld(t entity.ServerTarget) error {
	for _, dir := range []string{StorageDir, LogsDir} {
		p := filepath.Join(t.InstallPath, dir)
		if _, err := os.Lstat(p); err != nil {
			continue
		}
		console.Step("Removing %s folder", dir)
		if err := fsmerge.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}

// GenerateSameWorld wipes the world and regenerates it from the configured seed.
func (e *Eco) GenerateSameWorld() error {
	t, err := e.target()
	if err != nil {
		return err
	}
	if err := e.clearWorld(t); err != nil {
		return err
	}
	console.Step("Modifying %s to regenerate world", DifficultyConfig)
	return configpatch.Patch(e.configPath(t, DifficultyConfig), configpatch.Mutations{
		"GameSettings.GenerateRandomWorld": false,
	})
}

// GenerateNewWorld wipes the world and switches generation to a random seed.
func (e *Eco) GenerateNewWorld() error {
	t, err := e.target()
	if err != nil {
		return err
	}
	if err := e.clearWorld(t); err != nil {
		return err
	}
	console.Step("Modifying %s to set seed to 0", WorldGeneratorConfig)
	if err := configpatch.Patch(e.configPath(t, WorldGeneratorConfig), configpatch.Mutations{
		"HeightmapModule.Source.Config.Seed": 0,
	}); err != nil {
		return err
	}
	console.Step("Modifying %s to generate random world", DifficultyConfig)
	return configpatch.Patch(e.configPath(t, DifficultyConfig), configpatch.Mutations{
		"GameSettings.GenerateRandomWorld": true,
	})
}

// skipBackup leaves out world state, logs and previous server archives.
func skipBackup(rel string, _ bool) bool {
	return rel == StorageDir || rel == LogsDir || strings.HasPrefix(path.Base(rel), "EcoServer.zip")
}

// Backup zips the server tree and uploads it. bucket overrides the configured one.
// It returns the object key.
func (e *Eco) Backup(ctx context.Context, bucket string) (string, error) {
	t, err := e.target()
	if err != nil {
		return "", err
	}
	if bucket == "" {
		bucket = e.cfg.BackupBucket
	}
	if bucket == "" {
		return "", fmt.Errorf("%w: no backup bucket configured", errs.ErrConfiguration)
	}

	tmp, err := os.CreateTemp("", "eco-backup-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	archive := tmp.Name()
	defer os.Remove(archive)
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	console.Step("Zipping %s", t.InstallPath)
	count, err := fsmerge.ZipTree(t.InstallPath, archive, skipBackup)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("eco/backup-%s.zip", e.deps.Now().UTC().Format("20060102T150405Z"))
	logger.WithFields(logrus.Fields{"files": count, "key": key}).Info("Backup archived")
	console.Step("Uploading to s3://%s/%s", bucket, key)
	if err := e.deps.Uploader.Upload(ctx, bucket, key, archive); err != nil {
		return "", err
	}
	return key, nil
}

// Announce broadcasts msg in game.
func (e *Eco) Announce(ctx context.Context, msg string) (string, error) {
	return e.deps.Console.Announce(ctx, msg)
}

// Alert shows msg as a popup in game.
func (e *Eco) Alert(ctx context.Context, msg string) (string, error) {
	return e.deps.Console.Alert(ctx, msg)
}

// Players lists online players.
func (e *Eco) Players(ctx context.Context) (string, error) {
	return e.deps.Console.ListPlayers(ctx)
}

// Save persists the world.
func (e *Eco) Save(ctx context.Context) (string, error) {
	return e.deps.Console.Save(ctx)
}
