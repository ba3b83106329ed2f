// Package main provides the gameops command line: a flat set of named tasks for
// deploying and operating self-hosted game servers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/config"
	"github.com/kodflow/gameops/src/internal/infrastructure/console"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
	"github.com/kodflow/gameops/src/internal/version"
)

// Variable to allow testing of os.Exit.
var osExit = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout)
	stop()
	osExit(code)
}

// run executes one task and returns the process exit code. It is the only place
// where task errors are reported.
func run(ctx context.Context, args []string, out io.Writer) int {
	app := newApp(out)
	return report(app.RunContext(ctx, args))
}

// report prints err once, with the failing command's output below it, and
// returns the exit code.
func report(err error) int {
	if err == nil {
		return 0
	}

	var cmdErr *errs.CommandError
	output := ""
	if errors.As(err, &cmdErr) {
		output = cmdErr.Output
	}
	logger.WithError(err).WithField("output", output).Error("Task failed")
	console.Failure(err, output)
	return errs.ExitCode(err)
}

func newApp(out io.Writer) *cli.App {
	e := &env{}
	cli.VersionPrinter = func(c *cli.Context) {
		_, _ = fmt.Fprintln(c.App.Writer, version.GetFullVersion())
	}

	return &cli.App{
		Name:    version.Name,
		Usage:   "deploy and operate self-hosted game servers",
		Version: version.GetShortVersion(),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a gameops YAML file",
				EnvVars: []string{"GAMEOPS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level (debug, info, warn, error)",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if lvl := c.String("log-level"); lvl != "" {
				cfg.Log.Level = lvl
			}
			if err := logger.Initialize(logger.Config{
				Level:    cfg.Log.Level,
				Format:   cfg.Log.Format,
				FilePath: cfg.Log.File,
			}); err != nil {
				console.Warn("log file unavailable: %v", err)
			}
			e.load(cfg, c.App.Writer, c.App.ErrWriter)
			return nil
		},
		After: func(*cli.Context) error {
			logger.Close()
			return nil
		},
		// Errors are reported by run.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands:       commands(e),
	}
}
