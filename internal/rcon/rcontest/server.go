// Package rcontest provides an in-process RCON server for tests.
package rcontest

import (
	"errors"
	"net"
	"sync"

	"github.com/CrazyWorldPL/IVshop/internal/rcon"
)

// Server accepts RCON sessions on a loopback port and records executed commands.
type Server struct {
	password string
	listener net.Listener

	mu       sync.Mutex
	commands []string
	handler  func(command string) string

	wg sync.WaitGroup
}

// NewServer starts a server that accepts password.
func NewServer(password string) *Server {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("rcontest: failed to listen: " + err.Error())
	}

	s := &Server{
		password: password,
		listener: ln,
		handler:  func(string) string { return "" },
	}

	s.wg.Add(1)
	go s.serve()
	return s
}

// Addr returns host:port of the listener.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SetHandler sets the reply produced for each command.
func (s *Server) SetHandler(fn func(command string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

// Commands returns every command executed so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Close stops accepting connections and waits for open sessions.
func (s *Server) Close() {
	s.listener.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	authed := false
	for {
		p, err := rcon.ReadPacket(conn)
		if err != nil {
			return
		}

		switch p.Type {
		case rcon.TypeAuth:
			if p.Body != s.password {
				_ = rcon.WritePacket(conn, rcon.Packet{ID: rcon.AuthFailedID, Type: rcon.TypeAuthResponse})
				return
			}
			authed = true
			_ = rcon.WritePacket(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeAuthResponse})

		case rcon.TypeExecCommand:
			if !authed {
				_ = rcon.WritePacket(conn, rcon.Packet{ID: rcon.AuthFailedID, Type: rcon.TypeResponseValue})
				return
			}
			s.mu.Lock()
			s.commands = append(s.commands, p.Body)
			reply := s.handler(p.Body)
			s.mu.Unlock()
			for _, part := range fragments(reply) {
				if err := rcon.WritePacket(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeResponseValue, Body: part}); err != nil {
					return
				}
			}

		case rcon.TypeResponseValue:
			// Minecraft answers any other packet type with this text.
			_ = rcon.WritePacket(conn, rcon.Packet{ID: p.ID, Type: rcon.TypeResponseValue, Body: "Unknown request 0"})

		default:
			return
		}
	}
}

// fragments splits reply the way Minecraft does, at most
// rcon.MaxResponseLength bytes per packet. An empty reply is one empty packet.
func fragments(reply string) []string {
	parts := []string{}
	for len(reply) > rcon.MaxResponseLength {
		parts = append(parts, reply[:rcon.MaxResponseLength])
		reply = reply[rcon.MaxResponseLength:]
	}
	return append(parts, reply)
}
