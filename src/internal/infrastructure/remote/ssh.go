// Package remote executes commands on a game host over SSH.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// DefaultTimeout bounds the TCP dial and SSH handshake.
const DefaultTimeout = 15 * time.Second

// Config holds the SSH connection settings.
type Config struct {
	User           string
	Port           int
	KeyPath        string
	KnownHostsPath string
	Timeout        time.Duration
}

// Client is a lazily connected SSH client for one host. It satisfies system.Runner.
type Client struct {
	cfg    Config
	host   string
	client *ssh.Client
	mu     sync.Mutex
}

// NewClient creates a client for host. Nothing is dialed until the first command.
func NewClient(host string, cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{cfg: cfg, host: host}
}

// Addr returns host:port.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.cfg.Port))
}

func (c *Client) clientConfig() (*ssh.ClientConfig, error) {
	if c.cfg.User == "" {
		return nil, fmt.Errorf("%w: ssh user is not set", errs.ErrConfiguration)
	}
	key, err := os.ReadFile(c.cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read ssh key: %w", errs.ErrConfiguration, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse ssh key: %w", errs.ErrConfiguration, err)
	}
	hostKeyCallback, err := knownhosts.New(c.cfg.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read known_hosts: %w", errs.ErrConfiguration, err)
	}

	return &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.cfg.Timeout,
	}, nil
}

func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	sshConfig, err := c.clientConfig()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	addr := c.Addr()
	logger.WithField("addr", addr).Info("Connecting")
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	c.client = ssh.NewClient(sshConn, chans, reqs)
	return c.client, nil
}

// Close closes the connection if one is open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

func (c *Client) session(ctx context.Context) (*ssh.Session, func(), error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ssh session: %w", err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Signal(ssh.SIGTERM)
			_ = session.Close()
		case <-done:
		}
	}()
	return session, func() {
		close(done)
		_ = session.Close()
	}, nil
}

// Run executes cmd on the host and captures its combined output.
func (c *Client) Run(ctx context.Context, cmd command.Command) (entity.CommandResult, error) {
	result := entity.CommandResult{Command: cmd.String(), ExitCode: -1}
	if err := cmd.Validate(); err != nil {
		return result, fmt.Errorf("refusing to run command: %w", err)
	}

	session, release, err := c.session(ctx)
	if err != nil {
		return result, err
	}
	defer release()

	if cmd.Stdin != nil {
		session.Stdin = bytes.NewReader(cmd.Stdin)
	}

	logger.WithField("host", c.host).WithField("command", cmd.String()).Info("Running remote command")
	output, err := session.CombinedOutput(cmd.Shell())
	result.Output = string(output)
	if err != nil {
		cmdErr := errs.NewCommandError(cmd.String(), output, err)
		result.ExitCode = cmdErr.ExitCode
		return result, cmdErr
	}
	result.ExitCode = 0
	return result, nil
}

// Stream executes cmd on the host with output attached to stdout and stderr.
func (c *Client) Stream(ctx context.Context, cmd command.Command, stdout, stderr io.Writer) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("refusing to run command: %w", err)
	}
	session, release, err := c.session(ctx)
	if err != nil {
		return err
	}
	defer release()

	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	session.Stdout = stdout
	session.Stderr = stderr
	if cmd.Stdin != nil {
		session.Stdin = bytes.NewReader(cmd.Stdin)
	}

	logger.WithField("host", c.host).WithField("command", cmd.String()).Info("Running remote command")
	if err := session.Run(cmd.Shell()); err != nil {
		return errs.NewCommandError(cmd.String(), nil, err)
	}
	return nil
}

// Shell opens an interactive login shell on a PTY wired to the local terminal.
func (c *Client) Shell(ctx context.Context) error {
	session, release, err := c.session(ctx)
	if err != nil {
		return err
	}
	defer release()

	fd := int(os.Stdin.Fd())
	width, height := 80, 24
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set terminal raw mode: %w", err)
		}
		defer term.Restore(fd, state) //nolint:errcheck // best effort on exit
		if w, h, err := term.GetSize(fd); err == nil {
			width, height = w, h
		}
	}

	termType := os.Getenv("TERM")
	if termType == "" {
		termType = "xterm-256color"
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty(termType, height, width, modes); err != nil {
		return fmt.Errorf("failed to request pty: %w", err)
	}

	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr
	if err := session.Shell(); err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}

	err = session.Wait()
	var exitErr *ssh.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("shell session ended: %w", err)
	}
	return nil
}
