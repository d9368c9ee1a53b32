package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Order lifecycle states.
type OrderStatus string

const (
	OrderPlaced     OrderStatus = "PLACED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// ShippingSnapshot is the address captured at checkout time. It is a copy,
// not a live reference to the account's address book, and is stored as a
// JSON column on the order row.
type ShippingSnapshot struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Value implements driver.Valuer.
func (s ShippingSnapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *ShippingSnapshot) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = ShippingSnapshot{}
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into ShippingSnapshot", value)
	}
}

// Order is a placed checkout. Items carry the unit price copied at checkout
// time; the order total never changes after creation.
type Order struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	UserID          uint             `gorm:"not null;index" json:"user_id"`
	User            *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Reference       string           `gorm:"uniqueIndex;not null" json:"reference"`
	Total           float64          `gorm:"type:decimal(10,2);not null" json:"total"`
	Status          OrderStatus      `gorm:"type:varchar(16);default:'PLACED'" json:"status"`
	PaymentMethod   string           `gorm:"type:varchar(16)" json:"payment_method"`
	ShippingAddress ShippingSnapshot `gorm:"type:text" json:"shipping_address"`
	Items           []OrderItem      `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	OrderID       uint     `gorm:"not null;index" json:"order_id"`
	ProductID     uint     `gorm:"not null;index" json:"product_id"`
	Product       *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity      int      `gorm:"not null" json:"quantity"`
	UnitPrice     float64  `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	SelectedSize  string   `json:"selected_size,omitempty"`
	SelectedColor string   `json:"selected_color,omitempty"`
}

// ProductSales is an aggregation row for the admin sales breakdown.
type ProductSales struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	UnitsSold int64   `json:"units_sold"`
	Revenue   float64 `json:"revenue"`
}

// FormatOrderReference renders the short customer-facing handle for an
// order reference: "#" plus the last four characters, uppercased.
func FormatOrderReference(reference string) string {
	if reference == "" {
		return "#----"
	}
	if len(reference) > 4 {
		reference = reference[len(reference)-4:]
	}
	return "#" + strings.ToUpper(reference)
}
