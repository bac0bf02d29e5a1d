package database

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// LinkRepository provides database operations for NavbarLink
type LinkRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *DB) *LinkRepository {
	return &LinkRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Create inserts a navbar link
func (r *LinkRepository) Create(ctx context.Context, link *models.NavbarLink) error {
	if link.ID == "" {
		link.ID = newID()
	}
	result := r.db.WithContext(ctx).Create(link)
	if result.Error != nil {
		r.logger.Error("Failed to create link in database", "server_id", link.ServerID, "error", result.Error)
		return translate(result.Error)
	}
	return nil
}

// ListByServer retrieves the links of serverID
func (r *LinkRepository) ListByServer(ctx context.Context, serverID string) ([]*models.NavbarLink, error) {
	var links []*models.NavbarLink
	result := r.db.WithContext(ctx).Where("server_id = ?", serverID).Find(&links)
	if result.Error != nil {
		r.logger.Error("Failed to list links", "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return links, nil
}

// Delete removes a link of serverID
func (r *LinkRepository) Delete(ctx context.Context, serverID, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.NavbarLink{}, "id = ? AND server_id = ?", id, serverID)
	if result.Error != nil {
		r.logger.Error("Failed to delete link", "id", id, "server_id", serverID, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
