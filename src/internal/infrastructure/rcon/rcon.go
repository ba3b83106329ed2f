// Package rcon talks to the line-oriented remote console of a running game server.
//
// One exchange is one connection: the password line, one auth reply, one command
// line and one response line, then the connection is closed.
package rcon

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// DefaultPort is the console port next to the game (3000) and web (3001) ports.
const DefaultPort = 3002

// DefaultTimeout bounds a whole exchange.
const DefaultTimeout = 10 * time.Second

// Client sends console commands.
type Client struct {
	host     string
	port     int
	password entity.SecretValue
	timeout  time.Duration
}

// NewClient creates a client for host:port.
func NewClient(host string, port int, password entity.SecretValue, timeout time.Duration) *Client {
	if port == 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{host: host, port: port, password: password, timeout: timeout}
}

// Addr returns host:port.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

func singleLine(what, s string) error {
	if strings.ContainsAny(s, "\r\n") {
		return fmt.Errorf("%w: %s must not contain line breaks", errs.ErrConfiguration, what)
	}
	return nil
}

// Line joins name and args into the line sent to the server.
func Line(name string, args ...string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty console command", errs.ErrConfiguration)
	}
	if err := singleLine("command", name); err != nil {
		return "", err
	}
	for _, a := range args {
		if err := singleLine("argument", a); err != nil {
			return "", err
		}
	}
	return strings.Join(append([]string{name}, args...), " "), nil
}

// Send runs one console command and returns the server's reply line.
func (c *Client) Send(ctx context.Context, name string, args ...string) (string, error) {
	line, err := Line(name, args...)
	if err != nil {
		return "", err
	}
	if c.password.Empty() {
		return "", fmt.Errorf("%w: console password is not set", errs.ErrConfiguration)
	}
	if err := singleLine("password", c.password.Reveal()); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addr := c.Addr()
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect to console at %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tp := textproto.NewConn(conn)
	if err := tp.PrintfLine("%s", c.password.Reveal()); err != nil {
		return "", fmt.Errorf("failed to authenticate with %s: %w", addr, err)
	}
	auth, err := tp.ReadLine()
	if err != nil {
		return "", fmt.Errorf("failed to read auth reply from %s: %w", addr, err)
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(auth)), "OK") {
		return "", fmt.Errorf("console at %s rejected authentication: %s", addr, strings.TrimSpace(auth))
	}

	logger.WithField("addr", addr).WithField("command", name).Info("Sending console command")
	if err := tp.PrintfLine("%s", line); err != nil {
		return "", fmt.Errorf("failed to send command to %s: %w", addr, err)
	}
	reply, err := tp.ReadLine()
	if err != nil {
		return "", fmt.Errorf("failed to read reply from %s: %w", addr, err)
	}
	return reply, nil
}

// Announce broadcasts msg to every player.
func (c *Client) Announce(ctx context.Context, msg string) (string, error) {
	return c.Send(ctx, "announce", msg)
}

// Alert shows msg as a popup to every player.
func (c *Client) Alert(ctx context.Context, msg string) (string, error) {
	return c.Send(ctx, "alert", msg)
}

// ListPlayers returns the online player list line.
func (c *Client) ListPlayers(ctx context.Context) (string, error) {
	return c.Send(ctx, "players")
}

// Save asks the server to persist the world.
func (c *Client) Save(ctx context.Context) (string, error) {
	return c.Send(ctx, "save")
}
