// Package config provides configuration management for gameops.
//
// Values come from, in increasing priority: built-in defaults, an optional YAML
// file (gameops.yaml), a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/domain/target"
)

// DefaultConfigName is the file searched for in the working directory when no --config is given.
const DefaultConfigName = "gameops"

// Config represents the gameops configuration.
type Config struct {
	OS         string `mapstructure:"os"`
	User       string `mapstructure:"user"`
	Strict     bool   `mapstructure:"strict"`
	ServerPath string `mapstructure:"server_path"`

	StagingDir        string   `mapstructure:"staging_dir"`
	PublicModsFolder  string   `mapstructure:"public_mods_folder"`
	PrivateModsFolder string   `mapstructure:"private_mods_folder"`
	ProtectedDir      string   `mapstructure:"protected_dir"`
	LinkExtensions    []string `mapstructure:"link_extensions"`

	Repos ReposConfig `mapstructure:"repos"`
	RCON  RCONConfig  `mapstructure:"rcon"`
	AWS   AWSConfig   `mapstructure:"aws"`
	SSH   SSHConfig   `mapstructure:"ssh"`
	Log   LogConfig   `mapstructure:"log"`
}

// ReposConfig holds the clone URLs of the synced repositories.
type ReposConfig struct {
	Configs     string `mapstructure:"configs"`
	PrivateMods string `mapstructure:"private_mods"`
	PublicMods  string `mapstructure:"public_mods"`
	Assets      string `mapstructure:"assets"`
}

// RCONConfig locates the game server console. The password only ever comes from
// the environment.
type RCONConfig struct {
	Host     string             `mapstructure:"host"`
	Port     int                `mapstructure:"port"`
	Timeout  time.Duration      `mapstructure:"timeout"`
	Password entity.SecretValue `mapstructure:"-"`
}

// AWSConfig holds the cloud settings.
type AWSConfig struct {
	Region       string `mapstructure:"region"`
	HostedZoneID string `mapstructure:"hosted_zone_id"`
	BackupBucket string `mapstructure:"backup_bucket"`
	DefaultHost  string `mapstructure:"default_host"`
}

// SSHConfig holds the remote shell settings.
type SSHConfig struct {
	User           string        `mapstructure:"user"`
	Port           int           `mapstructure:"port"`
	KeyPath        string        `mapstructure:"key_path"`
	KnownHostsPath string        `mapstructure:"known_hosts_path"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("os", "")
	v.SetDefault("user", "")
	v.SetDefault("strict", true)
	v.SetDefault("server_path", "")

	v.SetDefault("staging_dir", "eco-server")
	v.SetDefault("public_mods_folder", "~/projects/eco-mods-public")
	v.SetDefault("private_mods_folder", filepath.Join("..", "eco-mods"))
	v.SetDefault("protected_dir", "BunWulfEducational")
	v.SetDefault("link_extensions", []string{".cs", ".unity3d"})

	v.SetDefault("repos.configs", "git@github.com:coilysiren/eco-configs.git")
	v.SetDefault("repos.private_mods", "git@github.com:coilysiren/eco-mods.git")
	v.SetDefault("repos.public_mods", "git@github.com:coilysiren/eco-mods-public.git")
	v.SetDefault("repos.assets", "git@github.com:coilysiren/eco-mods-assets.git")

	v.SetDefault("rcon.host", "localhost")
	v.SetDefault("rcon.port", 3002)
	v.SetDefault("rcon.timeout", "10s")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.hosted_zone_id", "")
	v.SetDefault("aws.backup_bucket", "")
	v.SetDefault("aws.default_host", "eco-server")

	v.SetDefault("ssh.user", "ec2-user")
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.key_path", "~/.ssh/id_rsa")
	v.SetDefault("ssh.known_hosts_path", "~/.ssh/known_hosts")
	v.SetDefault("ssh.timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load builds the configuration. configFile may be empty, in which case
// gameops.yaml is read from the working directory when present.
func Load(configFile string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GAMEOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config %s: %w", errs.ErrConfiguration, configFile, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: failed to read config: %w", errs.ErrConfiguration, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: error unmarshalling config: %w", errs.ErrConfiguration, err)
	}

	if cfg.OS == "" {
		cfg.OS = getEnvOrDefault("OS", runtime.GOOS)
	}
	if cfg.User == "" {
		cfg.User = getEnvOrDefault("USER", "")
	}
	cfg.RCON.Password = entity.NewSecretValue(getEnvOrDefault("ECO_RCON_PASSWORD", ""))

	for _, p := range []*string{
		&cfg.ServerPath, &cfg.PublicModsFolder, &cfg.PrivateModsFolder,
		&cfg.SSH.KeyPath, &cfg.SSH.KnownHostsPath, &cfg.Log.File,
	} {
		*p = expandHome(*p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that every task relies on.
func (c *Config) Validate() error {
	var problems []string
	if c.StagingDir == "" {
		problems = append(problems, "staging_dir is empty")
	}
	if c.RCON.Port < 1 || c.RCON.Port > 65535 {
		problems = append(problems, fmt.Sprintf("rcon.port %d is out of range", c.RCON.Port))
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		problems = append(problems, fmt.Sprintf("ssh.port %d is out of range", c.SSH.Port))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if len(c.LinkExtensions) == 0 {
		problems = append(problems, "link_extensions is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errs.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// ServerTarget resolves the live server location for this machine.
func (c *Config) ServerTarget() (entity.ServerTarget, error) {
	t, err := target.Resolve(c.OS, c.User, c.Strict)
	if err != nil {
		return entity.ServerTarget{}, err
	}
	return target.WithInstallPath(t, c.ServerPath), nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil //nolint:nilerr // a missing .env is normal
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: failed to load %s: %w", errs.ErrConfiguration, path, err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
