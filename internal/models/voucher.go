package models

import "time"

// VoucherStatus moves from VoucherUnused to VoucherUsed exactly once.
type VoucherStatus int

const (
	VoucherUnused VoucherStatus = 0
	VoucherUsed   VoucherStatus = 1
)

func (s VoucherStatus) String() string {
	if s == VoucherUsed {
		return "used"
	}
	return "unused"
}

// Voucher is a single-use code for one product. Vouchers are never deleted.
type Voucher struct {
	ID        string        `json:"id" gorm:"primaryKey"`
	ProductID string        `json:"product_id" gorm:"not null;index;uniqueIndex:idx_voucher_product_code"`
	Code      string        `json:"code" gorm:"not null;uniqueIndex:idx_voucher_product_code"`
	Status    VoucherStatus `json:"status" gorm:"not null;default:0;index"`
	Player    string        `json:"player,omitempty"`
	UsedAt    *time.Time    `json:"used_at,omitempty"`
	CreatedAt time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

// Redemption is the result of the scoped voucher lookup: everything needed to
// fulfil the voucher in one row.
type Redemption struct {
	VoucherID    string `gorm:"column:voucher_id"`
	ProductID    string `gorm:"column:product_id"`
	ServerID     string `gorm:"column:server_id"`
	Commands     string `gorm:"column:commands"`
	ServerIP     string `gorm:"column:server_ip"`
	RCONPort     int    `gorm:"column:rcon_port"`
	RCONPassword string `gorm:"column:rcon_password"`
	ContainerID  string `gorm:"column:container_id"`
}

// CommandList returns the product's command templates.
func (r *Redemption) CommandList() []string {
	return SplitCommands(r.Commands)
}

// Target returns the console the commands are sent to.
func (r *Redemption) Target() ConsoleTarget {
	s := Server{IP: r.ServerIP, RCONPort: r.RCONPort, RCONPassword: r.RCONPassword, ContainerID: r.ContainerID}
	return s.ConsoleTarget()
}

// RedeemRequest is the body of POST /api/v1/vouchers/redeem
type RedeemRequest struct {
	PlayerNick  string `json:"player_nick"`
	VoucherCode string `json:"voucher_code"`
	ServerID    string `json:"server_id"`
}

// GenerateVoucherRequest is the body of POST /api/v1/servers/{id}/vouchers
type GenerateVoucherRequest struct {
	ProductID   string `json:"product_id"`
	VoucherCode string `json:"voucher_code"`
}
