package database

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// OperatorRepository provides database operations for PaymentOperator
type OperatorRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewOperatorRepository creates a new operator repository
func NewOperatorRepository(db *DB) *OperatorRepository {
	return &OperatorRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Create inserts an operator. A second operator of the same type for the
// same server fails with ErrDuplicate.
func (r *OperatorRepository) Create(ctx context.Context, op *models.PaymentOperator) error {
	if op.ID == "" {
		op.ID = newID()
	}
	result := r.db.WithContext(ctx).Create(op)
	if result.Error != nil {
		err := translate(result.Error)
		r.logger.Warn("Failed to create operator in database", "server_id", op.ServerID, "type", op.Type, "error", err)
		return err
	}
	r.logger.Debug("Operator created in database", "id", op.ID, "server_id", op.ServerID, "type", op.Type)
	return nil
}

// ExistsForType reports whether serverID already has an operator of type t
func (r *OperatorRepository) ExistsForType(ctx context.Context, serverID string, t models.OperatorType) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.PaymentOperator{}).
		Where("server_id = ? AND type = ?", serverID, t).
		Count(&count)
	if result.Error != nil {
		r.logger.Error("Failed to check operator", "server_id", serverID, "type", t, "error", result.Error)
		return false, result.Error
	}
	return count > 0, nil
}

// ListByServer retrieves the operators of serverID
func (r *OperatorRepository) ListByServer(ctx context.Context, serverID string) ([]*models.PaymentOperator, error) {
	var ops []*models.PaymentOperator
	result := r.db.WithContext(ctx).Where("server_id = ?", serverID).Order("created_at").Find(&ops)
	if result.Error != nil {
		r.logger.Error("Failed to list operators", "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return ops, nil
}

// Delete removes an operator of serverID
func (r *OperatorRepository) Delete(ctx context.Context, serverID, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentOperator{}, "id = ? AND server_id = ?", id, serverID)
	if result.Error != nil {
		r.logger.Error("Failed to delete operator", "id", id, "server_id", serverID, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.logger.Debug("Operator deleted from database", "id", id, "server_id", serverID)
	return nil
}
