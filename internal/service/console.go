package service

import (
	"context"
	"log/slog"

	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/rcon"
)

// Console delivers commands to a game server console.
type Console interface {
	// Send runs commands in order with the player placeholder substituted.
	// Any failure means the batch must be treated as not delivered.
	Send(ctx context.Context, target models.ConsoleTarget, commands []string, player string) error
	// Probe connects and authenticates without running anything.
	Probe(ctx context.Context, target models.ConsoleTarget) (bool, error)
	// Execute runs one command and returns the console's reply.
	Execute(ctx context.Context, target models.ConsoleTarget, command string) (string, error)
}

// RCONConsole speaks the RCON protocol directly to the game server.
type RCONConsole struct {
	client *rcon.Client
}

// NewRCONConsole creates a console backed by client
func NewRCONConsole(client *rcon.Client) *RCONConsole {
	return &RCONConsole{client: client}
}

func (c *RCONConsole) Send(ctx context.Context, target models.ConsoleTarget, commands []string, player string) error {
	return c.client.SendCommands(ctx, target.Address, target.Password, commands, player)
}

func (c *RCONConsole) Probe(ctx context.Context, target models.ConsoleTarget) (bool, error) {
	return c.client.CheckReachable(ctx, target.Address, target.Password)
}

func (c *RCONConsole) Execute(ctx context.Context, target models.ConsoleTarget, command string) (string, error) {
	return c.client.Run(ctx, target.Address, target.Password, command)
}

// ConsoleRouter sends commands for container-hosted servers through Docker
// and everything else over RCON.
type ConsoleRouter struct {
	rcon   Console
	docker Console
	logger *slog.Logger
}

// NewConsoleRouter creates a router. docker may be nil when Docker is disabled.
func NewConsoleRouter(rconConsole, docker Console, logger *slog.Logger) *ConsoleRouter {
	return &ConsoleRouter{rcon: rconConsole, docker: docker, logger: logger}
}

func (r *ConsoleRouter) pick(target models.ConsoleTarget) Console {
	if target.ContainerID != "" && r.docker != nil {
		r.logger.Debug("Routing console through docker", "container_id", target.ContainerID)
		return r.docker
	}
	return r.rcon
}

func (r *ConsoleRouter) Send(ctx context.Context, target models.ConsoleTarget, commands []string, player string) error {
	return r.pick(target).Send(ctx, target, commands, player)
}

func (r *ConsoleRouter) Probe(ctx context.Context, target models.ConsoleTarget) (bool, error) {
	return r.pick(target).Probe(ctx, target)
}

func (r *ConsoleRouter) Execute(ctx context.Context, target models.ConsoleTarget, command string) (string, error) {
	return r.pick(target).Execute(ctx, target, command)
}
