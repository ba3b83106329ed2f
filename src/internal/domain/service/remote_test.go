package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

type fakeSession struct {
	*system.MockRunner
	host   string
	shells int
	closed bool
}

func (f *fakeSession) Shell(context.Context) error {
	f.shells++
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type dialRecorder struct {
	sessions []*fakeSession
}

func (d *dialRecorder) dial(host string) RemoteSession {
	s := &fakeSession{MockRunner: system.NewMockRunner(), host: host}
	s.Outputs["uptime"] = "up 3 days"
	s.StreamOutput = "streamed"
	d.sessions = append(d.sessions, s)
	return s
}

func TestRemoteExec(t *testing.T) {
	d := &dialRecorder{}
	r := NewRemote(&fakeHosts{ips: map[string]string{"eco-server": "203.0.113.7"}}, d.dial)

	res, err := r.RemoteExec(context.Background(), "eco-server", command.New("uptime"))
	require.NoError(t, err)
	assert.Equal(t, "up 3 days", res.Output)
	require.Len(t, d.sessions, 1)
	assert.Equal(t, "203.0.113.7", d.sessions[0].host)
	assert.True(t, d.sessions[0].closed)
}

func TestRemoteExec_UnresolvedHostNeverDials(t *testing.T) {
	d := &dialRecorder{}
	r := NewRemote(&fakeHosts{}, d.dial)

	_, err := r.RemoteExec(context.Background(), "missing", command.New("uptime"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTargetResolution))
	assert.Empty(t, d.sessions)

	_, err = r.RemoteExec(context.Background(), "", command.New("uptime"))
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
	assert.Empty(t, d.sessions)
}

func TestRemoteExec_FailurePropagatesExitCode(t *testing.T) {
	hosts := &fakeHosts{ips: map[string]string{"eco-server": "203.0.113.7"}}
	r := NewRemote(hosts, func(host string) RemoteSession {
		s := &fakeSession{MockRunner: system.NewMockRunner(), host: host}
		s.FailOn["false"] = 7
		return s
	})

	_, err := r.RemoteExec(context.Background(), "eco-server", command.New("false"))
	require.Error(t, err)
	assert.Equal(t, 7, errs.ExitCode(err))
}

func TestExecAndShell(t *testing.T) {
	d := &dialRecorder{}
	r := NewRemote(&fakeHosts{ips: map[string]string{"eco-server": "203.0.113.7"}}, d.dial)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, r.Exec(ctx, "eco-server", command.New("ls", "-la"), &out, &out))
	assert.Equal(t, "streamed", out.String())
	assert.Equal(t, []string{"ls -la"}, d.sessions[0].Lines())

	require.NoError(t, r.Shell(ctx, "eco-server"))
	assert.Equal(t, 1, d.sessions[1].shells)
	assert.True(t, d.sessions[1].closed)
}
