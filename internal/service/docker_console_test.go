package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/rcon"
)

type fakeContainers struct {
	running bool
	execErr error
	env     []string
	calls   [][]string
}

func (f *fakeContainers) Running(context.Context, string) (bool, error) {
	return f.running, nil
}

func (f *fakeContainers) Exec(_ context.Context, _ string, cmd []string) (string, error) {
	f.calls = append(f.calls, cmd)
	return "ok", f.execErr
}

func (f *fakeContainers) Env(context.Context, string) ([]string, error) {
	return f.env, nil
}

func TestDockerConsole_Send(t *testing.T) {
	containers := &fakeContainers{running: true}
	console := &DockerConsole{docker: containers, logger: testLogger()}
	target := models.ConsoleTarget{ContainerID: "mc-1"}

	err := console.Send(context.Background(), target, []string{"give {player} diamond 1", "say hi"}, "Steve")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"rcon-cli", "give Steve diamond 1"},
		{"rcon-cli", "say hi"},
	}, containers.calls)
}

func TestDockerConsole_StoppedContainer(t *testing.T) {
	containers := &fakeContainers{running: false}
	console := &DockerConsole{docker: containers, logger: testLogger()}

	err := console.Send(context.Background(), models.ConsoleTarget{ContainerID: "mc-1"}, []string{"say hi"}, "Steve")
	var connErr *rcon.ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, errContainerStopped)
	assert.Empty(t, containers.calls)

	ok, err := console.Probe(context.Background(), models.ConsoleTarget{ContainerID: "mc-1"})
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestDockerConsole_ExecFailure(t *testing.T) {
	containers := &fakeContainers{running: true, execErr: errors.New("exit code 1")}
	console := &DockerConsole{docker: containers, logger: testLogger()}

	_, err := console.Execute(context.Background(), models.ConsoleTarget{ContainerID: "mc-1"}, "list")
	var connErr *rcon.ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "execute", connErr.Op)
}

func TestConsoleRouter_PicksBackend(t *testing.T) {
	rconSide := &fakeConsole{}
	dockerSide := &fakeConsole{}
	router := NewConsoleRouter(rconSide, dockerSide, testLogger())
	ctx := context.Background()

	require.NoError(t, router.Send(ctx, models.ConsoleTarget{Address: "127.0.0.1:25575"}, []string{"say"}, "Steve"))
	require.NoError(t, router.Send(ctx, models.ConsoleTarget{ContainerID: "mc-1"}, []string{"say"}, "Steve"))
	assert.Equal(t, 1, rconSide.sendCount())
	assert.Equal(t, 1, dockerSide.sendCount())

	rconOnly := NewConsoleRouter(rconSide, nil, testLogger())
	require.NoError(t, rconOnly.Send(ctx, models.ConsoleTarget{ContainerID: "mc-1"}, []string{"say"}, "Steve"))
	assert.Equal(t, 2, rconSide.sendCount())
}

func TestDockerConsole_ProbeChecksPassword(t *testing.T) {
	ctx := context.Background()
	target := models.ConsoleTarget{ContainerID: "mc-1", Password: "secret"}

	tests := []struct {
		name string
		env  []string
		want bool
	}{
		{"matching password", []string{"EULA=TRUE", "RCON_PASSWORD=secret"}, true},
		{"wrong password", []string{"RCON_PASSWORD=other"}, false},
		{"prefix only", []string{"RCON_PASSWORD=secret2"}, false},
		{"no password variable", []string{"EULA=TRUE"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			console := &DockerConsole{docker: &fakeContainers{running: true, env: tt.env}, logger: testLogger()}
			ok, err := console.Probe(ctx, target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	console := &DockerConsole{docker: &fakeContainers{running: true, env: []string{"RCON_PASSWORD="}}, logger: testLogger()}
	ok, err := console.Probe(ctx, models.ConsoleTarget{ContainerID: "mc-1"})
	require.NoError(t, err)
	assert.False(t, ok)
}
