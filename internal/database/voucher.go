package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

// ErrVoucherUsed is returned by MarkUsed when the voucher was consumed first
// by someone else.
var ErrVoucherUsed = errors.New("voucher already used")

// VoucherRepository provides database operations for Voucher
type VoucherRepository struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *DB) *VoucherRepository {
	return &VoucherRepository{
		db:     db.DB,
		logger: db.logger,
		now:    time.Now,
	}
}

// Create inserts a new unused voucher
func (r *VoucherRepository) Create(ctx context.Context, v *models.Voucher) error {
	if v.ID == "" {
		v.ID = newID()
	}
	v.Status = models.VoucherUnused
	result := r.db.WithContext(ctx).Create(v)
	if result.Error != nil {
		err := translate(result.Error)
		r.logger.Warn("Failed to create voucher in database", "product_id", v.ProductID, "error", err)
		return err
	}
	r.logger.Debug("Voucher created in database", "id", v.ID, "product_id", v.ProductID)
	return nil
}

// FindRedeemable resolves an unused voucher with code whose product belongs
// to serverID. Deleted products and servers do not match.
func (r *VoucherRepository) FindRedeemable(ctx context.Context, code, serverID string) (*models.Redemption, error) {
	var row models.Redemption
	result := r.db.WithContext(ctx).
		Table("vouchers").
		Select(`vouchers.id AS voucher_id,
			vouchers.product_id AS product_id,
			products.server_id AS server_id,
			products.commands AS commands,
			servers.ip AS server_ip,
			servers.rcon_port AS rcon_port,
			servers.rcon_password AS rcon_password,
			servers.container_id AS container_id`).
		Joins("JOIN products ON products.id = vouchers.product_id AND products.deleted_at IS NULL").
		Joins("JOIN servers ON servers.id = products.server_id AND servers.deleted_at IS NULL").
		Where("vouchers.code = ? AND vouchers.status = ? AND products.server_id = ?", code, models.VoucherUnused, serverID).
		Take(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to look up voucher", "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return &row, nil
}

// MarkUsed flips the voucher to used only if it is still unused. Losing that
// race returns ErrVoucherUsed.
func (r *VoucherRepository) MarkUsed(ctx context.Context, id, player string) error {
	result := r.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("id = ? AND status = ?", id, models.VoucherUnused).
		Updates(map[string]any{
			"status":  models.VoucherUsed,
			"player":  player,
			"used_at": r.now(),
		})
	if result.Error != nil {
		r.logger.Error("Failed to mark voucher used", "id", id, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVoucherUsed
	}
	r.logger.Debug("Voucher marked used", "id", id, "player", player)
	return nil
}

// FindByID retrieves a voucher by its ID
func (r *VoucherRepository) FindByID(ctx context.Context, id string) (*models.Voucher, error) {
	var v models.Voucher
	result := r.db.WithContext(ctx).First(&v, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &v, nil
}

// CodeExistsOnServer reports whether any product of serverID already has a
// voucher with code. Redemption looks codes up per server, so codes must be
// unique at that scope.
func (r *VoucherRepository) CodeExistsOnServer(ctx context.Context, serverID, code string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Voucher{}).
		Joins("JOIN products ON products.id = vouchers.product_id").
		Where("products.server_id = ? AND vouchers.code = ?", serverID, code).
		Count(&count)
	if result.Error != nil {
		r.logger.Error("Failed to check voucher code", "server_id", serverID, "error", result.Error)
		return false, result.Error
	}
	return count > 0, nil
}

// ListByServer retrieves all vouchers of serverID's products, newest first
func (r *VoucherRepository) ListByServer(ctx context.Context, serverID string) ([]*models.Voucher, error) {
	var vouchers []*models.Voucher
	result := r.db.WithContext(ctx).
		Select("vouchers.*").
		Joins("JOIN products ON products.id = vouchers.product_id").
		Where("products.server_id = ?", serverID).
		Order("vouchers.created_at DESC").
		Find(&vouchers)
	if result.Error != nil {
		r.logger.Error("Failed to list vouchers", "server_id", serverID, "error", result.Error)
		return nil, result.Error
	}
	return vouchers, nil
}
