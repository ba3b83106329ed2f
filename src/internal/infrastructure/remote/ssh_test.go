package remote

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
)

type execHandler func(cmd string) (string, uint32)

type testServer struct {
	host      string
	port      int
	hostKey   ssh.Signer
	clientKey ed25519.PrivateKey
	commands  chan string
}

func newSigner(t *testing.T) (ssh.Signer, ed25519.PrivateKey) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer, priv
}

func startServer(t *testing.T, handle execHandler) *testServer {
	t.Helper()
	hostSigner, _ := newSigner(t)
	clientSigner, clientPriv := newSigner(t)

	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), clientSigner.PublicKey().Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unknown key")
		},
	}
	cfg.AddHostKey(hostSigner)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	srv := &testServer{
		host:      "127.0.0.1",
		port:      l.Addr().(*net.TCPAddr).Port,
		hostKey:   hostSigner,
		clientKey: clientPriv,
		commands:  make(chan string, 16),
	}

	go func() {
		for {
			nc, err := l.Accept()
			if err != nil {
				return
			}
			go srv.serve(nc, cfg, handle)
		}
	}()
	return srv
}

func (s *testServer) serve(nc net.Conn, cfg *ssh.ServerConfig, handle execHandler) {
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			return
		}
		go func() {
			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				_ = ssh.Unmarshal(req.Payload, &payload)
				_ = req.Reply(true, nil)
				s.commands <- payload.Command

				out, status := handle(payload.Command)
				_, _ = ch.Write([]byte(out))
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
				_ = ch.Close()
				return
			}
		}()
	}
}

// clientConfig writes the client key and known_hosts for srv into a temp dir.
func (s *testServer) clientConfig(t *testing.T, trusted ssh.PublicKey) Config {
	t.Helper()
	dir := t.TempDir()

	block, err := ssh.MarshalPrivateKey(s.clientKey, "")
	require.NoError(t, err)
	keyPath := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	knownHostsPath := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{addr}, trusted) + "\n"
	require.NoError(t, os.WriteFile(knownHostsPath, []byte(line), 0o600))

	return Config{User: "ec2-user", Port: s.port, KeyPath: keyPath, KnownHostsPath: knownHostsPath}
}

func TestClient_Run(t *testing.T) {
	srv := startServer(t, func(cmd string) (string, uint32) {
		return "players: 3\n", 0
	})
	client := NewClient(srv.host, srv.clientConfig(t, srv.hostKey.PublicKey()))
	defer client.Close()

	result, err := client.Run(context.Background(), command.New("systemctl", "status", "eco server"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "players: 3\n", result.Output)
	assert.Equal(t, "systemctl status 'eco server'", <-srv.commands)
}

func TestClient_RunNonZeroExit(t *testing.T) {
	srv := startServer(t, func(cmd string) (string, uint32) {
		return "unit not found\n", 5
	})
	client := NewClient(srv.host, srv.clientConfig(t, srv.hostKey.PublicKey()))
	defer client.Close()

	result, err := client.Run(context.Background(), command.New("systemctl", "restart", "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCommand))
	assert.Equal(t, 5, errs.ExitCode(err))
	assert.Equal(t, 5, result.ExitCode)
	assert.Contains(t, result.Output, "unit not found")
}

func TestClient_RejectsUnknownHostKey(t *testing.T) {
	srv := startServer(t, func(string) (string, uint32) { return "", 0 })
	other, _ := newSigner(t)
	client := NewClient(srv.host, srv.clientConfig(t, other.PublicKey()))
	defer client.Close()

	_, err := client.Run(context.Background(), command.New("true"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, errs.ErrCommand))
	assert.Len(t, srv.commands, 0)
}

func TestClient_MissingKeyIsConfigurationError(t *testing.T) {
	client := NewClient("127.0.0.1", Config{User: "ec2-user", KeyPath: filepath.Join(t.TempDir(), "missing")})

	_, err := client.Run(context.Background(), command.New("true"))
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("203.0.113.10", Config{})
	assert.Equal(t, "203.0.113.10:22", client.Addr())
	assert.Equal(t, DefaultTimeout, client.cfg.Timeout)
}
