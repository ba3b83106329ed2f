package service

import (
	"context"
	"fmt"
	"io"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

// RemoteSession is a connection to one host.
type RemoteSession interface {
	system.Runner
	Shell(ctx context.Context) error
	Close() error
}

// Dialer opens a session to host. It must not connect until first use.
type Dialer func(host string) RemoteSession

// Remote runs commands on cloud instances found by name.
type Remote struct {
	hosts HostResolver
	dial  Dialer
}

// NewRemote creates the remote task set.
func NewRemote(hosts HostResolver, dial Dialer) *Remote {
	return &Remote{hosts: hosts, dial: dial}
}

func (r *Remote) open(ctx context.Context, selector string) (RemoteSession, error) {
	if selector == "" {
		return nil, fmt.Errorf("%w: no host name given", errs.ErrConfiguration)
	}
	host, err := r.hosts.Resolve(ctx, selector)
	if err != nil {
		return nil, err
	}
	logger.WithField("host", host).WithField("name", selector).Info("Resolved host")
	return r.dial(host), nil
}

// RemoteExec resolves selector, runs cmd there and returns its captured result.
func (r *Remote) RemoteExec(ctx context.Context, selector string, cmd command.Command) (entity.CommandResult, error) {
	if err := cmd.Validate(); err != nil {
		return entity.CommandResult{}, fmt.Errorf("%w: %w", errs.ErrConfiguration, err)
	}
	session, err := r.open(ctx, selector)
	if err != nil {
		return entity.CommandResult{}, err
	}
	defer session.Close()
	return session.Run(ctx, cmd)
}

// Exec resolves selector and streams cmd's output to stdout and stderr.
func (r *Remote) Exec(ctx context.Context, selector string, cmd command.Command, stdout, stderr io.Writer) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConfiguration, err)
	}
	session, err := r.open(ctx, selector)
	if err != nil {
		return err
	}
	defer session.Close()
	return session.Stream(ctx, cmd, stdout, stderr)
}

// Shell opens an interactive shell on the host named selector.
func (r *Remote) Shell(ctx context.Context, selector string) error {
	session, err := r.open(ctx, selector)
	if err != nil {
		return err
	}
	defer session.Close()
	return session.Shell(ctx)
}
