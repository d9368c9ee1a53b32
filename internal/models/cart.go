package models

import "time"

// Cart holds a user's pending selections. One row per user, created lazily.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one product selection inside a cart.
type CartItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CartID        uint      `gorm:"not null;index" json:"cart_id"`
	ProductID     uint      `gorm:"not null;index" json:"product_id"`
	Product       *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	SelectedSize  string    `json:"selected_size,omitempty"`
	SelectedColor string    `json:"selected_color,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
