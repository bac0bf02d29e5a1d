package database

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// ServerRepository provides database operations for Server
type ServerRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewServerRepository creates a new server repository
func NewServerRepository(db *DB) *ServerRepository {
	return &ServerRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Create inserts a new server into the database
func (r *ServerRepository) Create(ctx context.Context, server *models.Server) error {
	if server.ID == "" {
		server.ID = newID()
	}
	result := r.db.WithContext(ctx).Create(server)
	if result.Error != nil {
		r.logger.Error("Failed to create server in database", "error", result.Error)
		return translate(result.Error)
	}
	r.logger.Debug("Server created in database", "id", server.ID, "name", server.Name)
	return nil
}

// FindByID retrieves a server by its ID
func (r *ServerRepository) FindByID(ctx context.Context, id string) (*models.Server, error) {
	var server models.Server
	result := r.db.WithContext(ctx).First(&server, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to find server by ID", "id", id, "error", result.Error)
		return nil, result.Error
	}
	return &server, nil
}

// FindByDomain retrieves the server whose storefront is served on domain
func (r *ServerRepository) FindByDomain(ctx context.Context, domain string) (*models.Server, error) {
	var server models.Server
	result := r.db.WithContext(ctx).First(&server, "domain = ?", domain)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to find server by domain", "domain", domain, "error", result.Error)
		return nil, result.Error
	}
	return &server, nil
}

// FindAll retrieves all servers
func (r *ServerRepository) FindAll(ctx context.Context) ([]*models.Server, error) {
	var servers []*models.Server
	result := r.db.WithContext(ctx).Order("created_at").Find(&servers)
	if result.Error != nil {
		r.logger.Error("Failed to find all servers", "error", result.Error)
		return nil, result.Error
	}
	return servers, nil
}

// FindManagedBy retrieves the servers userID owns or administers.
// Admin lists are comma separated, so membership is checked in Go.
func (r *ServerRepository) FindManagedBy(ctx context.Context, userID string) ([]*models.Server, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	var managed []*models.Server
	for _, s := range all {
		if s.IsManagedBy(userID) {
			managed = append(managed, s)
		}
	}
	return managed, nil
}

// DomainTaken reports whether another server already claimed domain.
func (r *ServerRepository) DomainTaken(ctx context.Context, domain, exceptID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Server{}).
		Where("domain = ? AND id <> ?", domain, exceptID).
		Count(&count)
	if result.Error != nil {
		r.logger.Error("Failed to check domain", "domain", domain, "error", result.Error)
		return false, result.Error
	}
	return count > 0, nil
}

// Update applies fn to a locked copy of the server and writes every column
// back. The write is conditional on the revision read, so a concurrent edit
// yields ErrStale instead of being overwritten.
func (r *ServerRepository) Update(ctx context.Context, id string, fn func(*models.Server) error) (*models.Server, error) {
	var server models.Server
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&server, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		revision := server.Revision
		if err := fn(&server); err != nil {
			return err
		}
		server.ID = id
		server.Revision = revision + 1

		result := tx.Model(&models.Server{}).
			Where("id = ? AND revision = ?", id, revision).
			Select("*").
			Omit("id", "created_at", "deleted_at").
			Updates(&server)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrStale
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrStale) && !errors.Is(err, ErrDuplicate) {
			r.logger.Error("Failed to update server", "id", id, "error", err)
		}
		return nil, err
	}
	r.logger.Debug("Server updated in database", "id", id, "revision", server.Revision)
	return &server, nil
}

// SetRCONStatus records the result of the latest console probe.
func (r *ServerRepository) SetRCONStatus(ctx context.Context, id string, reachable bool) error {
	result := r.db.WithContext(ctx).Model(&models.Server{}).
		Where("id = ?", id).
		Update("rcon_status", reachable)
	if result.Error != nil {
		r.logger.Error("Failed to update rcon status", "id", id, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus stores a status API snapshot. Only the status columns are
// touched so concurrent settings edits are not lost.
func (r *ServerRepository) UpdateStatus(ctx context.Context, id string, status models.ServerStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Server{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"online":  status.Online,
			"version": status.Version,
			"players": status.PlayersLabel(),
		})
	if result.Error != nil {
		r.logger.Error("Failed to update server status", "id", id, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
