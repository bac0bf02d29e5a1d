package handlers

import (
	"log/slog"
	"net/http"

	"github.com/CrazyWorldPL/IVshop/internal/auth"
	"github.com/CrazyWorldPL/IVshop/internal/models"
	"github.com/CrazyWorldPL/IVshop/internal/service"
)

// serverAccess resolves the {id} path value to a server the caller manages.
type serverAccess struct {
	registry *service.RegistryService
	logger   *slog.Logger
}

func (a serverAccess) managedServer(w http.ResponseWriter, r *http.Request) (*models.Server, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Brak tokenu autoryzacji.")
		return nil, false
	}
	server, err := a.registry.Authorize(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		respondAppError(w, r, a.logger, err)
		return nil, false
	}
	return server, true
}

// ServerHandler handles HTTP requests for server management
type ServerHandler struct {
	serverAccess
	catalog *service.CatalogService
}

// NewServerHandler creates a new ServerHandler
func NewServerHandler(registry *service.RegistryService, catalog *service.CatalogService, logger *slog.Logger) *ServerHandler {
	return &ServerHandler{
		serverAccess: serverAccess{registry: registry, logger: logger},
		catalog:      catalog,
	}
}

// ListServers handles GET /api/v1/servers
func (h *ServerHandler) ListServers(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	servers, err := h.registry.ListForUser(r.Context(), claims.UserID)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, servers)
}

// RegisterServer handles POST /api/v1/servers
func (h *ServerHandler) RegisterServer(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterServerRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	claims, _ := auth.FromContext(r.Context())

	h.logger.InfoContext(r.Context(), "Registering server", "name", req.Name, "owner_id", claims.UserID)

	server, err := h.registry.Register(r.Context(), claims.UserID, req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondResult(w, "Dodano serwer, możesz teraz odświeżyć stronę.", "server", server)
}

// Panel handles GET /api/v1/servers/{id}/panel
func (h *ServerHandler) Panel(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}

	panel, err := h.catalog.Panel(r.Context(), server)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, panel)
}

// UpdateSettings handles PUT /api/v1/servers/{id}/settings
func (h *ServerHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}
	var req models.UpdateSettingsRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	updated, err := h.registry.UpdateSettings(r.Context(), server.ID, req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Server settings updated", "server_id", server.ID)
	respondResult(w, "Zapisano ustawienia", "server", updated)
}

// CustomizeWebsite handles PUT /api/v1/servers/{id}/website
func (h *ServerHandler) CustomizeWebsite(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}
	var req models.CustomizeWebsiteRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	updated, err := h.registry.CustomizeWebsite(r.Context(), server.ID, req)
	if err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondResult(w, "Zapisano zmiany.", "server", updated)
}

// TestRCON handles POST /api/v1/servers/{id}/rcon/test
func (h *ServerHandler) TestRCON(w http.ResponseWriter, r *http.Request) {
	server, ok := h.managedServer(w, r)
	if !ok {
		return
	}

	if err := h.registry.TestRCON(r.Context(), server.ID); err != nil {
		respondAppError(w, r, h.logger, err)
		return
	}

	respondMessage(w, "Sukces, połączenie rcon ponownie działa.")
}
