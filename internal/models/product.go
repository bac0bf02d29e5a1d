package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// CommandSeparator splits a product's command templates.
const CommandSeparator = ";"

// Product is something a server sells. Price fields are only set for payment
// types the server has configured.
type Product struct {
	ID          string `json:"id" gorm:"primaryKey"`
	ServerID    string `json:"server_id" gorm:"index;not null"`
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Commands    string `json:"commands" gorm:"not null"`

	LvlupOtherPrice *float64 `json:"lvlup_other_price,omitempty"`
	LvlupSMSNumber  *string  `json:"lvlup_sms_number,omitempty"`
	MicroSMSNumber  *string  `json:"microsms_sms_number,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// CommandList splits the stored templates, dropping blank entries.
func (p *Product) CommandList() []string {
	return SplitCommands(p.Commands)
}

// SplitCommands splits a semicolon-delimited command list.
func SplitCommands(raw string) []string {
	var out []string
	for _, cmd := range strings.Split(raw, CommandSeparator) {
		if cmd = strings.TrimSpace(cmd); cmd != "" {
			out = append(out, cmd)
		}
	}
	return out
}

// HasPriceFor reports whether the price field for t is populated.
func (p *Product) HasPriceFor(t OperatorType) bool {
	switch t {
	case OperatorLvlupOther:
		return p.LvlupOtherPrice != nil
	case OperatorLvlupSMS:
		return p.LvlupSMSNumber != nil && *p.LvlupSMSNumber != ""
	case OperatorMicroSMS:
		return p.MicroSMSNumber != nil && *p.MicroSMSNumber != ""
	}
	return false
}

// ProductRequest is the body for adding or editing a product.
type ProductRequest struct {
	Captcha         string `json:"captcha"`
	Name            string `json:"product_name"`
	Description     string `json:"product_description"`
	Image           string `json:"product_image"`
	Commands        string `json:"product_commands"`
	LvlupOtherPrice string `json:"lvlup_other_price"`
	LvlupSMSNumber  string `json:"lvlup_sms_price"`
	MicroSMSNumber  string `json:"microsms_sms_price"`
}
