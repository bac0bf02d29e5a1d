package database

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// PurchaseRepository provides database operations for Purchase
type PurchaseRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *DB) *PurchaseRepository {
	return &PurchaseRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// Create inserts a purchase
func (r *PurchaseRepository) Create(ctx context.Context, p *models.Purchase) error {
	if p.ID == "" {
		p.ID = newID()
	}
	result := r.db.WithContext(ctx).Create(p)
	if result.Error != nil {
		r.logger.Error("Failed to create purchase in database", "product_id", p.ProductID, "error", result.Error)
		return translate(result.Error)
	}
	return nil
}

// RecentFulfilled returns the latest fulfilled purchases of serverID
func (r *PurchaseRepository) RecentFulfilled(ctx context.Context, serverID string, limit int) ([]*models.Purchase, error) {
	var purchases []*models.Purchase
	result := r.db.WithContext(ctx).
		Select("purchases.*").
		Joins("JOIN products ON products.id = purchases.product_id").
		Where("products.server_id = ? AND purchases.status = ?", serverID, models.PurchaseFulfilled).
		Order("purchases.date DESC").
		Limit(limit).
		Find(&purchases)
	if result.Error != nil {
		r.logger.Error("Failed to list purchases", "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return purchases, nil
}

// ListByServer returns every purchase of serverID, pending ones included,
// newest first.
func (r *PurchaseRepository) ListByServer(ctx context.Context, serverID string) ([]*models.Purchase, error) {
	var purchases []*models.Purchase
	result := r.db.WithContext(ctx).
		Select("purchases.*").
		Joins("JOIN products ON products.id = purchases.product_id").
		Where("products.server_id = ?", serverID).
		Order("purchases.date DESC").
		Find(&purchases)
	if result.Error != nil {
		r.logger.Error("Failed to list purchases", "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return purchases, nil
}

// CountFulfilled counts fulfilled purchases of serverID
func (r *PurchaseRepository) CountFulfilled(ctx context.Context, serverID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Joins("JOIN products ON products.id = purchases.product_id").
		Where("products.server_id = ? AND purchases.status = ?", serverID, models.PurchaseFulfilled).
		Count(&count)
	if result.Error != nil {
		r.logger.Error("Failed to count purchases", "server_id", serverID, "error", result.Error)
		return 0, result.Error
	}
	return count, nil
}

// ProductSales is the number of fulfilled purchases of one product.
type ProductSales struct {
	ProductID string `json:"product_id"`
	Sales     int64  `json:"sales"`
}

// SalesByProduct aggregates fulfilled purchases per product of serverID
func (r *PurchaseRepository) SalesByProduct(ctx context.Context, serverID string) ([]ProductSales, error) {
	var rows []ProductSales
	result := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Select("purchases.product_id AS product_id, COUNT(*) AS sales").
		Joins("JOIN products ON products.id = purchases.product_id").
		Where("products.server_id = ? AND purchases.status = ?", serverID, models.PurchaseFulfilled).
		Group("purchases.product_id").
		Order("sales DESC").
		Scan(&rows)
	if result.Error != nil {
		r.logger.Error("Failed to aggregate sales", "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return rows, nil
}
