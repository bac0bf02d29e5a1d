package models

import "time"

// PurchaseStatus of a payment-provider transaction.
type PurchaseStatus int

const (
	PurchasePending   PurchaseStatus = 0
	PurchaseFulfilled PurchaseStatus = 1
)

// Purchase records one paid order. Rows are written by payment webhooks.
type Purchase struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	ProductID string         `json:"product_id" gorm:"index;not null"`
	Player    string         `json:"player"`
	Operator  OperatorType   `json:"operator_type" gorm:"type:varchar(20)"`
	Status    PurchaseStatus `json:"status" gorm:"not null;default:0;index"`
	Date      time.Time      `json:"date" gorm:"index"`
}

// NavbarLink is a storefront navigation entry.
type NavbarLink struct {
	ID       string `json:"id" gorm:"primaryKey"`
	ServerID string `json:"server_id" gorm:"index;not null"`
	Name     string `json:"name" gorm:"not null"`
	URL      string `json:"url" gorm:"not null"`
}

// AddLinkRequest is the body of POST /api/v1/servers/{id}/links
type AddLinkRequest struct {
	Name string `json:"link_name"`
	URL  string `json:"link_url"`
}
