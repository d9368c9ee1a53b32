package models

import "time"

// Address is a saved shipping address. At most one address per user may
// carry IsDefaultShipping=true; the account service enforces this inside a
// transaction when the flag is written.
type Address struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	Label             string    `gorm:"not null" json:"label"`
	Line1             string    `gorm:"not null" json:"line1"`
	Line2             string    `json:"line2,omitempty"`
	City              string    `gorm:"not null" json:"city"`
	PostalCode        string    `gorm:"not null" json:"postal_code"`
	Country           string    `gorm:"not null" json:"country"`
	IsDefaultShipping bool      `gorm:"default:false;index" json:"is_default_shipping"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PaymentInstrument is a tokenized payment method on file. Same
// single-default rule as Address, keyed on IsDefault.
type PaymentInstrument struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	UserID                  uint      `gorm:"not null;index" json:"user_id"`
	Provider                string    `gorm:"not null" json:"provider"`
	Brand                   string    `json:"brand,omitempty"`
	Last4                   string    `gorm:"type:varchar(4);not null" json:"last4"`
	ExpiresMonth            int       `gorm:"not null" json:"expires_month"`
	ExpiresYear             int       `gorm:"not null" json:"expires_year"`
	ProviderPaymentMethodID string    `gorm:"not null" json:"provider_payment_method_id"`
	IsDefault               bool      `gorm:"default:false;index" json:"is_default"`
	CreatedAt               time.Time `json:"created_at"`
}

// NotificationPreference holds per-user notification toggles, created
// lazily with all channels enabled.
type NotificationPreference struct {
	UserID            uint      `gorm:"primaryKey" json:"user_id"`
	OrderUpdatesEmail bool      `gorm:"default:true" json:"order_updates_email"`
	OrderUpdatesPush  bool      `gorm:"default:true" json:"order_updates_push"`
	PromotionsEmail   bool      `gorm:"default:false" json:"promotions_email"`
	PromotionsPush    bool      `gorm:"default:false" json:"promotions_push"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProfileSetting holds per-user locale settings, created lazily.
type ProfileSetting struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Language  string    `gorm:"type:varchar(8);default:'en'" json:"language"`
	Currency  string    `gorm:"type:varchar(8);default:'USD'" json:"currency"`
	Region    string    `gorm:"type:varchar(8)" json:"region,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
