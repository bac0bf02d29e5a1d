package database

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// ProductRepository provides database operations for Product.
// Every lookup is scoped to the owning server.
type ProductRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = newID()
	}
	result := r.db.WithContext(ctx).Create(product)
	if result.Error != nil {
		r.logger.Error("Failed to create product in database", "server_id", product.ServerID, "error", result.Error)
		return translate(result.Error)
	}
	r.logger.Debug("Product created in database", "id", product.ID, "server_id", product.ServerID)
	return nil
}

// FindByID retrieves a product of serverID
func (r *ProductRepository) FindByID(ctx context.Context, serverID, id string) (*models.Product, error) {
	var product models.Product
	result := r.db.WithContext(ctx).First(&product, "id = ? AND server_id = ?", id, serverID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to find product", "id", id, "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return &product, nil
}

// ListByServer retrieves the live products of serverID
func (r *ProductRepository) ListByServer(ctx context.Context, serverID string) ([]*models.Product, error) {
	var products []*models.Product
	result := r.db.WithContext(ctx).Where("server_id = ?", serverID).Order("created_at").Find(&products)
	if result.Error != nil {
		r.logger.Error("Failed to list products", "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return products, nil
}

// CountByServer counts the live products of serverID
func (r *ProductRepository) CountByServer(ctx context.Context, serverID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Product{}).Where("server_id = ?", serverID).Count(&count)
	if result.Error != nil {
		r.logger.Error("Failed to count products", "server_id", serverID, "error", result.Error)
		return 0, result.Error
	}
	return count, nil
}

// Update applies fn to a locked copy of the product and saves it.
func (r *ProductRepository) Update(ctx context.Context, serverID, id string, fn func(*models.Product) error) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ? AND server_id = ?", id, serverID)
		if result.Error != nil {
			return translate(result.Error)
		}
		if err := fn(&product); err != nil {
			return err
		}
		product.ID, product.ServerID = id, serverID
		return tx.Save(&product).Error
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Error("Failed to update product", "id", id, "server_id", serverID, "error", err)
		}
		return nil, err
	}
	r.logger.Debug("Product updated in database", "id", id, "server_id", serverID)
	return &product, nil
}

// Delete soft-deletes a product. Its vouchers stop being redeemable.
func (r *ProductRepository) Delete(ctx context.Context, serverID, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ? AND server_id = ?", id, serverID)
	if result.Error != nil {
		r.logger.Error("Failed to delete product", "id", id, "server_id", serverID, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.logger.Debug("Product deleted from database", "id", id, "server_id", serverID)
	return nil
}
