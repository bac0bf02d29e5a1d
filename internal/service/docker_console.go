package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/rcon"
)

var errContainerStopped = errors.New("container is not running")

// containerExecutor is the part of DockerService the console needs.
type containerExecutor interface {
	Running(ctx context.Context, containerID string) (bool, error)
	Exec(ctx context.Context, containerID string, cmd []string) (string, error)
	Env(ctx context.Context, containerID string) ([]string, error)
}

// rconPasswordEnv is the variable the itzg/minecraft-server image reads its
// RCON password from. rcon-cli inside the container uses it too.
const rconPasswordEnv = "RCON_PASSWORD"

// DockerConsole runs console commands through `rcon-cli` inside the server's
// container, so no RCON port has to be exposed.
type DockerConsole struct {
	docker containerExecutor
	logger *slog.Logger
}

// NewDockerConsole creates a console backed by docker
func NewDockerConsole(docker *DockerService, logger *slog.Logger) *DockerConsole {
	return &DockerConsole{docker: docker, logger: logger}
}

func (c *DockerConsole) Send(ctx context.Context, target models.ConsoleTarget, commands []string, player string) error {
	if err := c.ensureRunning(ctx, target); err != nil {
		return err
	}
	for _, command := range commands {
		if _, err := c.docker.Exec(ctx, target.ContainerID, []string{"rcon-cli", rcon.Substitute(command, player)}); err != nil {
			c.logger.ErrorContext(ctx, "Container command failed", "container_id", target.ContainerID, "error", err)
			return &rcon.ConnectivityError{Addr: target.ContainerID, Op: "execute", Err: err}
		}
	}
	return nil
}

// Probe reports whether the container runs and was started with the target's
// RCON password. rcon-cli authenticates on its own, so the password has to be
// compared here.
func (c *DockerConsole) Probe(ctx context.Context, target models.ConsoleTarget) (bool, error) {
	if err := c.ensureRunning(ctx, target); err != nil {
		return false, err
	}
	env, err := c.docker.Env(ctx, target.ContainerID)
	if err != nil {
		return false, &rcon.ConnectivityError{Addr: target.ContainerID, Op: "auth", Err: err}
	}
	password, ok := lookupEnv(env, rconPasswordEnv)
	if !ok || target.Password == "" {
		c.logger.WarnContext(ctx, "Container has no RCON password", "container_id", target.ContainerID)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(target.Password)) != 1 {
		c.logger.WarnContext(ctx, "Container RCON password mismatch", "container_id", target.ContainerID)
		return false, nil
	}
	return true, nil
}

func (c *DockerConsole) Execute(ctx context.Context, target models.ConsoleTarget, command string) (string, error) {
	if err := c.ensureRunning(ctx, target); err != nil {
		return "", err
	}
	out, err := c.docker.Exec(ctx, target.ContainerID, []string{"rcon-cli", command})
	if err != nil {
		return "", &rcon.ConnectivityError{Addr: target.ContainerID, Op: "execute", Err: err}
	}
	return out, nil
}

func (c *DockerConsole) ensureRunning(ctx context.Context, target models.ConsoleTarget) error {
	running, err := c.docker.Running(ctx, target.ContainerID)
	if err != nil {
		return &rcon.ConnectivityError{Addr: target.ContainerID, Op: "dial", Err: err}
	}
	if !running {
		return &rcon.ConnectivityError{Addr: target.ContainerID, Op: "dial", Err: errContainerStopped}
	}
	return nil
}

func lookupEnv(env []string, key string) (string, bool) {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}
