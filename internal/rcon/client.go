// Package rcon speaks the Minecraft remote console protocol.
package rcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// PlayerPlaceholder is replaced with the acting player's name in command templates.
const PlayerPlaceholder = "{player}"

const DefaultTimeout = 5 * time.Second

var (
	ErrAuthFailed      = errors.New("rcon: authentication failed")
	ErrCommandTooLong  = errors.New("rcon: command too long")
	ErrUnexpectedReply = errors.New("rcon: unexpected reply")
)

// ConnectivityError is returned for every transport or authentication failure.
// Callers treat a batch that failed with it as not delivered.
type ConnectivityError struct {
	Addr string
	Op   string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("rcon %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// Client opens short-lived RCON sessions bounded by a timeout.
type Client struct {
	timeout time.Duration
	dialer  *net.Dialer
}

// NewClient creates a client whose sessions never outlive timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		timeout: timeout,
		dialer:  &net.Dialer{Timeout: timeout},
	}
}

// Substitute replaces every player placeholder in command.
func Substitute(command, player string) string {
	return strings.ReplaceAll(command, PlayerPlaceholder, player)
}

// SendCommands runs commands in order over one authenticated session.
func (c *Client) SendCommands(ctx context.Context, addr, password string, commands []string, player string) error {
	conn, err := c.Dial(ctx, addr, password)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, command := range commands {
		if _, err := conn.Execute(Substitute(command, player)); err != nil {
			return &ConnectivityError{Addr: addr, Op: "execute", Err: err}
		}
	}
	return nil
}

// CheckReachable connects and authenticates without sending commands.
func (c *Client) CheckReachable(ctx context.Context, addr, password string) (bool, error) {
	conn, err := c.Dial(ctx, addr, password)
	if err != nil {
		return false, err
	}
	conn.Close()
	return true, nil
}

// Run executes a single command and returns the server's reply.
func (c *Client) Run(ctx context.Context, addr, password, command string) (string, error) {
	conn, err := c.Dial(ctx, addr, password)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	out, err := conn.Execute(command)
	if err != nil {
		return "", &ConnectivityError{Addr: addr, Op: "execute", Err: err}
	}
	return out, nil
}

// Dial opens and authenticates a session. The session deadline is the earlier
// of the client timeout and the context deadline.
func (c *Client) Dial(ctx context.Context, addr, password string) (*Conn, error) {
	raw, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectivityError{Addr: addr, Op: "dial", Err: err}
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := raw.SetDeadline(deadline); err != nil {
		raw.Close()
		return nil, &ConnectivityError{Addr: addr, Op: "dial", Err: err}
	}

	conn := &Conn{conn: raw}
	if err := conn.authenticate(password); err != nil {
		raw.Close()
		return nil, &ConnectivityError{Addr: addr, Op: "auth", Err: err}
	}
	return conn, nil
}

// Conn is one authenticated RCON session. It is not safe for concurrent use.
type Conn struct {
	conn   net.Conn
	nextID int32
}

func (c *Conn) requestID() int32 {
	c.nextID++
	return c.nextID
}

func (c *Conn) authenticate(password string) error {
	id := c.requestID()
	if err := WritePacket(c.conn, Packet{ID: id, Type: TypeAuth, Body: password}); err != nil {
		return err
	}

	for {
		reply, err := ReadPacket(c.conn)
		if err != nil {
			return err
		}
		// Some servers send an empty RESPONSE_VALUE ahead of the auth result.
		if reply.Type == TypeResponseValue {
			continue
		}
		if reply.Type != TypeAuthResponse {
			return fmt.Errorf("%w: type %d during auth", ErrUnexpectedReply, reply.Type)
		}
		if reply.ID == AuthFailedID {
			return ErrAuthFailed
		}
		if reply.ID != id {
			return fmt.Errorf("%w: id %d, want %d", ErrUnexpectedReply, reply.ID, id)
		}
		return nil
	}
}

// Execute sends command and returns the body of the matching response.
//
// Replies longer than MaxResponseLength arrive split over several packets
// with the request id. The server answers in order, so an empty packet sent
// right after the command marks where the reply ends: its answer comes back
// once every fragment was written.
func (c *Conn) Execute(command string) (string, error) {
	if len(command) > MaxCommandLength {
		return "", ErrCommandTooLong
	}

	id := c.requestID()
	if err := WritePacket(c.conn, Packet{ID: id, Type: TypeExecCommand, Body: command}); err != nil {
		return "", err
	}
	end := c.requestID()
	if err := WritePacket(c.conn, Packet{ID: end, Type: TypeResponseValue}); err != nil {
		return "", err
	}

	var body strings.Builder
	for {
		reply, err := ReadPacket(c.conn)
		if err != nil {
			return "", err
		}
		switch {
		case reply.ID == AuthFailedID:
			return "", ErrAuthFailed
		case reply.ID == end:
			return body.String(), nil
		case reply.ID == id && reply.Type == TypeResponseValue:
			body.WriteString(reply.Body)
		default:
			return "", fmt.Errorf("%w: id %d type %d", ErrUnexpectedReply, reply.ID, reply.Type)
		}
	}
}

func (c *Conn) Close() error {
	return c.conn.Close()
}
