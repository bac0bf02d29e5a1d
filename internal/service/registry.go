package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CrazyWorldPL/IVshop/internal/apperr"
	"github.com/CrazyWorldPL/IVshop/internal/database"
	"github.com/CrazyWorldPL/IVshop/internal/models"
)

var (
	ErrMissingServerData = apperr.Validation(http.StatusLengthRequired, "Uzupełnij informacje o serwerze.")
	ErrServerOffline     = apperr.Validation(http.StatusBadRequest, "Serwer jest wyłączony.")
	ErrServerRCON        = apperr.Connectivity(http.StatusBadRequest, "Wystąpił błąd podczas łączenia się do rcon.", nil)
	ErrServerNotFound    = apperr.NotFound(http.StatusNotFound, "Nie znaleziono serwera.")
	ErrServerForbidden   = apperr.Forbidden("Nie masz dostępu do tego serwera.")
	ErrDomainTaken       = apperr.Conflict("Taka domena jest już w bazie.")
	ErrSettingsChanged   = apperr.Conflict("Ustawienia zostały zmienione w międzyczasie, spróbuj ponownie.")
)

// RegistryService manages server registration and per-server settings.
type RegistryService struct {
	servers *database.ServerRepository
	console Console
	status  StatusChecker
	logger  *slog.Logger
}

// NewRegistryService creates a new registry service
func NewRegistryService(servers *database.ServerRepository, console Console, status StatusChecker, logger *slog.Logger) *RegistryService {
	return &RegistryService{
		servers: servers,
		console: console,
		status:  status,
		logger:  logger,
	}
}

// Register persists a new server owned by ownerID. The server must be
// reported online by the status API and accept the RCON credentials;
// otherwise nothing is stored.
func (s *RegistryService) Register(ctx context.Context, ownerID string, req models.RegisterServerRequest) (*models.Server, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.IP = strings.TrimSpace(req.IP)
	if req.Name == "" || req.IP == "" || req.RCONPassword == "" || !validPort(req.RCONPort) {
		return nil, ErrMissingServerData
	}

	status, err := s.status.Status(ctx, req.IP)
	if err != nil {
		s.logger.WarnContext(ctx, "Status lookup failed", "ip", req.IP, "error", err)
		return nil, ErrServerOffline.Wrap(err)
	}
	if !status.Online {
		return nil, ErrServerOffline
	}

	server := &models.Server{
		Name:         req.Name,
		IP:           req.IP,
		RCONPort:     req.RCONPort,
		RCONPassword: req.RCONPassword,
		OwnerID:      ownerID,
	}
	if err := s.probe(ctx, server.ConsoleTarget()); err != nil {
		return nil, err
	}

	server.RCONStatus = true
	server.Online = true
	server.Version = status.Version
	server.Players = status.PlayersLabel()

	if err := s.servers.Create(ctx, server); err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.InfoContext(ctx, "Server registered", "server_id", server.ID, "owner_id", ownerID)
	return server, nil
}

// Authorize loads serverID and checks that userID manages it.
func (s *RegistryService) Authorize(ctx context.Context, serverID, userID string) (*models.Server, error) {
	server, err := s.Get(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if !server.IsManagedBy(userID) {
		s.logger.WarnContext(ctx, "Access to server denied", "server_id", serverID, "user_id", userID)
		return nil, ErrServerForbidden
	}
	return server, nil
}

// Get loads a server by id.
func (s *RegistryService) Get(ctx context.Context, serverID string) (*models.Server, error) {
	server, err := s.servers.FindByID(ctx, serverID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrServerNotFound
		}
		return nil, apperr.Internal(err)
	}
	return server, nil
}

// ListForUser returns the servers userID owns or administers.
func (s *RegistryService) ListForUser(ctx context.Context, userID string) ([]*models.Server, error) {
	servers, err := s.servers.FindManagedBy(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return servers, nil
}

// ListAll returns every registered server.
func (s *RegistryService) ListAll(ctx context.Context) ([]*models.Server, error) {
	servers, err := s.servers.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return servers, nil
}

// UpdateSettings changes the connection settings after verifying the new
// credentials. The write is a versioned update of the locked row.
func (s *RegistryService) UpdateSettings(ctx context.Context, serverID string, req models.UpdateSettingsRequest) (*models.Server, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.IP = strings.TrimSpace(req.IP)
	if req.Name == "" || req.IP == "" || req.RCONPassword == "" || !validPort(req.RCONPort) {
		return nil, ErrMissingServerData
	}

	current, err := s.Get(ctx, serverID)
	if err != nil {
		return nil, err
	}
	candidate := *current
	candidate.IP, candidate.RCONPort, candidate.RCONPassword = req.IP, req.RCONPort, req.RCONPassword
	if err := s.probe(ctx, candidate.ConsoleTarget()); err != nil {
		return nil, err
	}

	updated, err := s.servers.Update(ctx, serverID, func(server *models.Server) error {
		if server.Revision != current.Revision {
			return database.ErrStale
		}
		server.Name = req.Name
		server.IP = req.IP
		server.RCONPort = req.RCONPort
		server.RCONPassword = req.RCONPassword
		server.RCONStatus = true
		return nil
	})
	if err != nil {
		return nil, s.updateError(err)
	}
	s.logger.InfoContext(ctx, "Server settings updated", "server_id", serverID, "revision", updated.Revision)
	return updated, nil
}

// CustomizeWebsite stores the storefront appearance. A custom domain may
// belong to one server only.
func (s *RegistryService) CustomizeWebsite(ctx context.Context, serverID string, req models.CustomizeWebsiteRequest) (*models.Server, error) {
	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	if domain != "" {
		taken, err := s.servers.DomainTaken(ctx, domain, serverID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken {
			return nil, ErrDomainTaken
		}
	}

	updated, err := s.servers.Update(ctx, serverID, func(server *models.Server) error {
		server.Logo = req.Logo
		server.OwnCSS = req.OwnCSS
		server.ShopStyle = req.ShopStyle
		server.DiscordWebhook = req.DiscordWebhook
		server.Admins = strings.ReplaceAll(req.Admins, " ", "")
		if domain == "" {
			server.Domain = nil
		} else {
			server.Domain = &domain
		}
		return nil
	})
	if err != nil {
		return nil, s.updateError(err)
	}
	s.logger.InfoContext(ctx, "Server website customized", "server_id", serverID)
	return updated, nil
}

// AttachContainer routes the server's console through a local container.
// It is an operator action: the container must run and carry the server's
// RCON password. An empty containerID detaches.
func (s *RegistryService) AttachContainer(ctx context.Context, serverID, containerID string) (*models.Server, error) {
	server, err := s.Get(ctx, serverID)
	if err != nil {
		return nil, err
	}

	containerID = strings.TrimSpace(containerID)
	if containerID != "" {
		target := server.ConsoleTarget()
		target.ContainerID = containerID
		if err := s.probe(ctx, target); err != nil {
			return nil, err
		}
	}

	updated, err := s.servers.Update(ctx, serverID, func(srv *models.Server) error {
		srv.ContainerID = containerID
		return nil
	})
	if err != nil {
		return nil, s.updateError(err)
	}
	s.logger.InfoContext(ctx, "Server container changed", "server_id", serverID, "container_id", containerID)
	return updated, nil
}

// TestRCON probes the stored credentials and persists the outcome.
func (s *RegistryService) TestRCON(ctx context.Context, serverID string) error {
	server, err := s.Get(ctx, serverID)
	if err != nil {
		return err
	}

	probeErr := s.probe(ctx, server.ConsoleTarget())
	if err := s.servers.SetRCONStatus(ctx, serverID, probeErr == nil); err != nil {
		return apperr.Internal(err)
	}
	return probeErr
}

// Execute runs one console command on the server, for the admin console.
func (s *RegistryService) Execute(ctx context.Context, server *models.Server, command string) (string, error) {
	out, err := s.console.Execute(ctx, server.ConsoleTarget(), command)
	if err != nil {
		s.logger.WarnContext(ctx, "Console command failed", "server_id", server.ID, "error", err)
		return "", ErrServerRCON.Wrap(err)
	}
	return out, nil
}

func (s *RegistryService) probe(ctx context.Context, target models.ConsoleTarget) error {
	ok, err := s.console.Probe(ctx, target)
	if err != nil {
		s.logger.WarnContext(ctx, "RCON probe failed", "address", target.Address, "error", err)
		return ErrServerRCON.Wrap(err)
	}
	if !ok {
		return ErrServerRCON
	}
	return nil
}

func (s *RegistryService) updateError(err error) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ErrServerNotFound
	case errors.Is(err, database.ErrStale):
		return ErrSettingsChanged
	case errors.Is(err, database.ErrDuplicate):
		return ErrDomainTaken
	}
	return apperr.Internal(err)
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}
