package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/service"
)

// LogSource streams a container's console output.
type LogSource interface {
	Logs(ctx context.Context, containerID string, follow bool, tail string) (io.ReadCloser, error)
}

// ConsoleHandler serves the live admin console over WebSocket.
type ConsoleHandler struct {
	serverAccess
	logs    LogSource
	origins []string
}

// NewConsoleHandler creates a new ConsoleHandler. logs may be nil, in which
// case the socket only carries command results.
func NewConsoleHandler(registry *service.RegistryService, logs LogSource, origins []string, logger *slog.Logger) *ConsoleHandler {
	return &ConsoleHandler{
		serverAccess: serverAccess{registry: registry, logger: logger},
		logs:         logs,
		origins:      origins,
	}
}

// CommandMessage represents a command sent from the client
type CommandMessage struct {
	Type    string `json:"type"`    // "command"
	Command string `json:"command"` // console command to execute
}

// ResponseMessage represents a response sent to the client
type ResponseMessage struct {
	Type    string `json:"type"` // "log", "command_result", "error"
	Content string `json:"content"`
}

// Console handles GET /api/v1/servers/{id}/console
func (h *ConsoleHandler) Console(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to upgrade to WebSocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	h.logger.InfoContext(r.Context(), "Console session opened", "server_id", server.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if h.logs != nil && server.ContainerID != "" {
		tail := r.URL.Query().Get("tail")
		if tail == "" {
			tail = "100"
		}
		logReader, err := h.logs.Logs(ctx, server.ContainerID, true, tail)
		if err != nil {
			h.logger.WarnContext(ctx, "Failed to get server logs", "server_id", server.ID, "error", err)
			h.sendMessage(ctx, conn, "error", "Nie udało się pobrać logów serwera.")
		} else {
			defer logReader.Close()
			go h.streamLogs(ctx, conn, logReader, server.ID)
		}
	}

	h.handleClientMessages(ctx, conn, server)
	h.logger.InfoContext(r.Context(), "Console session closed", "server_id", server.ID)
}

func (h *ConsoleHandler) acceptOptions() *websocket.AcceptOptions {
	for _, origin := range h.origins {
		if origin == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.origins}
}

// handleClientMessages reads commands until the client disconnects.
func (h *ConsoleHandler) handleClientMessages(ctx context.Context, conn *websocket.Conn, server *models.Server) {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				h.logger.DebugContext(ctx, "Console client disconnected", "server_id", server.ID, "error", err)
			}
			return
		}

		if msgType != websocket.MessageText {
			h.logger.WarnContext(ctx, "Received non-text message", "server_id", server.ID, "type", msgType)
			continue
		}

		var cmdMsg CommandMessage
		if err := json.Unmarshal(data, &cmdMsg); err != nil {
			h.sendMessage(ctx, conn, "error", "Invalid message format")
			continue
		}
		if cmdMsg.Type != "command" || cmdMsg.Command == "" {
			continue
		}

		h.logger.InfoContext(ctx, "Executing console command", "server_id", server.ID, "command", cmdMsg.Command)

		output, err := h.registry.Execute(ctx, server, cmdMsg.Command)
		if err != nil {
			h.logger.WarnContext(ctx, "Console command failed", "server_id", server.ID, "error", err)
			h.sendMessage(ctx, conn, "error", "Wystąpił błąd podczas łączenia się do rcon.")
			continue
		}
		if err := h.sendMessage(ctx, conn, "command_result", output); err != nil {
			return
		}
	}
}

// streamLogs demultiplexes docker output and forwards it line by line.
func (h *ConsoleHandler) streamLogs(ctx context.Context, conn *websocket.Conn, logReader io.Reader, serverID string) {
	pr, pw := io.Pipe()
	defer pr.Close()

	go func() {
		defer pw.Close()
		if _, err := stdcopy.StdCopy(pw, pw, logReader); err != nil && err != io.EOF {
			h.logger.DebugContext(ctx, "Error demultiplexing logs", "server_id", serverID, "error", err)
		}
	}()

	scanner := bufio.NewScanner(pr)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if err := h.sendMessage(ctx, conn, "log", line); err != nil {
			return
		}
	}
}

func (h *ConsoleHandler) sendMessage(ctx context.Context, conn *websocket.Conn, kind, content string) error {
	data, _ := json.Marshal(ResponseMessage{Type: kind, Content: content})
	return conn.Write(ctx, websocket.MessageText, data)
}
