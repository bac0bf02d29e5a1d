package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerService handles Docker operations for servers running in local containers
type DockerService struct {
	client *client.Client
	logger *slog.Logger
}

// NewDockerService creates a new Docker service
func NewDockerService(logger *slog.Logger) (*DockerService, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}

	return &DockerService{
		client: cli,
		logger: logger,
	}, nil
}

// Close closes the Docker client connection
func (s *DockerService) Close() error {
	return s.client.Close()
}

// Ping checks if Docker daemon is accessible
func (s *DockerService) Ping(ctx context.Context) error {
	_, err := s.client.Ping(ctx)
	return err
}

// Running reports whether the container exists and is running
func (s *DockerService) Running(ctx context.Context, containerID string) (bool, error) {
	if containerID == "" {
		return false, nil
	}

	containerJSON, err := s.client.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container: %w", err)
	}

	return containerJSON.State.Running && !containerJSON.State.Restarting, nil
}

// Env returns the environment the container was started with.
func (s *DockerService) Env(ctx context.Context, containerID string) ([]string, error) {
	containerJSON, err := s.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}
	if containerJSON.Config == nil {
		return nil, nil
	}
	return containerJSON.Config.Env, nil
}

// Exec runs cmd inside the container and returns its combined output.
// A non-zero exit code is an error carrying the output.
func (s *DockerService) Exec(ctx context.Context, containerID string, cmd []string) (string, error) {
	execConfig := container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	}

	execResp, err := s.client.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return "", fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := s.client.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to attach to exec: %w", err)
	}
	defer attachResp.Close()

	// The attach stream multiplexes stdout and stderr.
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader); err != nil {
		return "", fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := s.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect exec: %w", err)
	}

	output := strings.TrimSpace(stdout.String() + stderr.String())
	if inspect.ExitCode != 0 {
		s.logger.WarnContext(ctx, "Container command failed", "container_id", containerID, "exit_code", inspect.ExitCode)
		return output, fmt.Errorf("exec exited with code %d: %s", inspect.ExitCode, output)
	}
	return output, nil
}

// Logs streams the container's console output
func (s *DockerService) Logs(ctx context.Context, containerID string, follow bool, tail string) (io.ReadCloser, error) {
	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       tail,
	}

	logs, err := s.client.ContainerLogs(ctx, containerID, options)
	if err != nil {
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}

	return logs, nil
}
