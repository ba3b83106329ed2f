package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/domain/service"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/console"
)

func commands(e *env) []*cli.Command {
	return []*cli.Command{
		ecoCommand(e),
		lifecycleCommand("corekeeper", "Core Keeper dedicated server", func() lifecycle { return e.server(service.CoreKeeper) }),
		lifecycleCommand("icarus", "Icarus dedicated server", func() lifecycle { return e.server(service.Icarus) }),
		backendCommand(e),
		coreCommand(e),
		llamaCommand(e),
		k8sCommand(e),
		dnsCommand(e),
		awsCommand(e),
	}
}

type lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	Tail(ctx context.Context) error
}

func lifecycleTasks(get func() lifecycle) []*cli.Command {
	task := func(name, usage string, fn func(lifecycle, context.Context) error) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Action: func(c *cli.Context) error {
				return fn(get(), c.Context)
			},
		}
	}
	return []*cli.Command{
		task("start", "start the unit and enable it at boot", lifecycle.Start),
		task("stop", "stop the unit and disable it at boot", lifecycle.Stop),
		task("restart", "restart the unit", lifecycle.Restart),
		task("tail", "follow the unit journal", lifecycle.Tail),
	}
}

func lifecycleCommand(name, usage string, get func() lifecycle) *cli.Command {
	return &cli.Command{Name: name, Usage: usage, Subcommands: lifecycleTasks(get)}
}

func branchFlag() cli.Flag {
	return &cli.StringFlag{Name: "branch", Aliases: []string{"b"}, Usage: "branch to sync (remote default when empty)"}
}

// oneArg returns the single positional argument named what.
func oneArg(c *cli.Context, what string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%w: expected exactly one %s", errs.ErrConfiguration, what)
	}
	return c.Args().First(), nil
}

func printReply(reply string) {
	if reply = strings.TrimSpace(reply); reply != "" {
		console.Println(reply)
	}
}

func ecoCommand(e *env) *cli.Command {
	copyMods := func(name, usage string, fn func(*service.Eco, context.Context, string) error) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Flags: []cli.Flag{branchFlag()},
			Action: func(c *cli.Context) error {
				if err := fn(e.eco(), c.Context, c.String("branch")); err != nil {
					return err
				}
				console.Success("%s done", name)
				return nil
			},
		}
	}
	symlink := func(name, usage string, fn func(*service.Eco, string) error) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "MOD",
			Action: func(c *cli.Context) error {
				mod, err := oneArg(c, "mod name")
				if err != nil {
					return err
				}
				return fn(e.eco(), mod)
			},
		}
	}
	message := func(name, usage string, fn func(*service.Eco, context.Context, string) (string, error)) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "MESSAGE",
			Action: func(c *cli.Context) error {
				reply, err := fn(e.eco(), c.Context, strings.Join(c.Args().Slice(), " "))
				if err != nil {
					return err
				}
				printReply(reply)
				return nil
			},
		}
	}
	query := func(name, usage string, fn func(*service.Eco, context.Context) (string, error)) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Action: func(c *cli.Context) error {
				reply, err := fn(e.eco(), c.Context)
				if err != nil {
					return err
				}
				printReply(reply)
				return nil
			},
		}
	}
	symlinkMod := func(fn func(*service.Eco, string) ([]entity.SymlinkEntry, error)) func(*service.Eco, string) error {
		return func(eco *service.Eco, mod string) error {
			links, err := fn(eco, mod)
			if err != nil {
				return err
			}
			console.Success("linked %d files", len(links))
			return nil
		}
	}

	tasks := lifecycleTasks(func() lifecycle { return e.eco() })
	tasks = append(tasks,
		&cli.Command{
			Name:  "copy-configs",
			Usage: "sync the configs repository into the server",
			Action: func(c *cli.Context) error {
				if err := e.eco().CopyConfigs(c.Context); err != nil {
					return err
				}
				console.Success("copy-configs done")
				return nil
			},
		},
		copyMods("copy-public-mods", "sync the public mods repository into the server", (*service.Eco).CopyPublicMods),
		copyMods("copy-private-mods", "sync the private mods repository into the server", (*service.Eco).CopyPrivateMods),
		copyMods("copy-assets", "sync built mod assets into the server", (*service.Eco).CopyAssets),
		symlink("symlink-public-mod", "link a mod from the public mods working tree", symlinkMod((*service.Eco).SymlinkPublicMod)),
		symlink("symlink-private-mod", "link a mod from the private mods working tree", symlinkMod((*service.Eco).SymlinkPrivateMod)),
		&cli.Command{
			Name:  "run",
			Usage: "patch configs for a private session and run the server in the foreground",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "offline", Usage: "run without the server API token"},
			},
			Action: func(c *cli.Context) error {
				return e.eco().Run(c.Context, c.Bool("offline"))
			},
		},
		&cli.Command{
			Name:  "generate-same-world",
			Usage: "wipe the world and regenerate it from the configured seed",
			Action: func(*cli.Context) error {
				return e.eco().GenerateSameWorld()
			},
		},
		&cli.Command{
			Name:  "generate-new-world",
			Usage: "wipe the world and generate a random one",
			Action: func(*cli.Context) error {
				return e.eco().GenerateNewWorld()
			},
		},
		&cli.Command{
			Name:  "backup",
			Usage: "zip the server tree and upload it",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "bucket", Usage: "override aws.backup_bucket"},
			},
			Action: func(c *cli.Context) error {
				key, err := e.eco().Backup(c.Context, c.String("bucket"))
				if err != nil {
					return err
				}
				console.Success("uploaded %s", key)
				return nil
			},
		},
		message("announce", "broadcast a chat message", (*service.Eco).Announce),
		message("alert", "show a popup to every player", (*service.Eco).Alert),
		query("players", "list online players", (*service.Eco).Players),
		query("save", "save the world", (*service.Eco).Save),
	)
	return &cli.Command{Name: "eco", Usage: "Eco dedicated server", Subcommands: tasks}
}

func backendCommand(e *env) *cli.Command {
	tasks := lifecycleTasks(func() lifecycle { return e.backend() })
	return &cli.Command{Name: "backend", Usage: "web backend service", Subcommands: tasks}
}

func coreCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "core",
		Usage: "host maintenance",
		Subcommands: []*cli.Command{{
			Name:  "systemd-restart",
			Usage: "install every unit from ./systemd and bring each one up",
			Action: func(c *cli.Context) error {
				_, err := e.core().SystemdRestart(c.Context)
				return err
			},
		}},
	}
}

func llamaCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "llama",
		Usage: "llama cluster deployment",
		Subcommands: []*cli.Command{
			{
				Name:  "deploy-secrets",
				Usage: "log in to the registry and apply the image pull secret",
				Action: func(c *cli.Context) error {
					return e.kubernetes().DeployLlamaSecrets(c.Context)
				},
			},
			{
				Name:  "deploy",
				Usage: "apply the llama manifest",
				Action: func(c *cli.Context) error {
					return e.kubernetes().DeployLlama(c.Context)
				},
			},
		},
	}
}

func k8sCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "k8s",
		Usage: "cluster add-ons",
		Subcommands: []*cli.Command{{
			Name:  "cert-manager",
			Usage: "apply the pinned cert-manager release",
			Action: func(c *cli.Context) error {
				return e.kubernetes().CertManager(c.Context)
			},
		}},
	}
}

func hostFlag() cli.Flag {
	return &cli.StringFlag{Name: "name", Aliases: []string{"host"}, Usage: "instance Name tag (default aws.default_host)"}
}

func hostName(c *cli.Context, e *env) string {
	if name := c.String("name"); name != "" {
		return name
	}
	return e.cfg.AWS.DefaultHost
}

func dnsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "dns",
		Usage: "Route53 records",
		Subcommands: []*cli.Command{{
			Name:      "point",
			Usage:     "point an A record at an instance's public address",
			ArgsUsage: "RECORD",
			Flags:     []cli.Flag{hostFlag()},
			Action: func(c *cli.Context) error {
				record, err := oneArg(c, "record name")
				if err != nil {
					return err
				}
				ip, err := e.dns().Point(c.Context, record, hostName(c, e))
				if err != nil {
					return err
				}
				console.Success("%s => %s", record, ip)
				return nil
			},
		}},
	}
}

// remoteCommand turns the trailing arguments of `aws exec` into a command. A single
// argument is split like a shell line.
func remoteCommand(args []string) (command.Command, error) {
	switch len(args) {
	case 0:
		return command.Command{}, fmt.Errorf("%w: no command given", errs.ErrConfiguration)
	case 1:
		cmd, err := command.Parse(args[0])
		if err != nil {
			return command.Command{}, fmt.Errorf("%w: %w", errs.ErrConfiguration, err)
		}
		return cmd, nil
	default:
		return command.New(args[0], args[1:]...), nil
	}
}

func awsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "aws",
		Usage: "cloud instances",
		Subcommands: []*cli.Command{
			{
				Name:  "ssh",
				Usage: "open an interactive shell on an instance",
				Flags: []cli.Flag{hostFlag()},
				Action: func(c *cli.Context) error {
					return e.remote().Shell(c.Context, hostName(c, e))
				},
			},
			{
				Name:      "exec",
				Usage:     "run a command on an instance",
				ArgsUsage: "-- COMMAND [ARGS...]",
				Flags:     []cli.Flag{hostFlag()},
				Action: func(c *cli.Context) error {
					cmd, err := remoteCommand(c.Args().Slice())
					if err != nil {
						return err
					}
					return e.remote().Exec(c.Context, hostName(c, e), cmd, c.App.Writer, c.App.ErrWriter)
				},
			},
		},
	}
}
