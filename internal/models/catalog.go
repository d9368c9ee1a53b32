package models

import (
	"time"
)

// Audience values accepted by the catalog filter.
const (
	AudienceWomen  = "WOMEN"
	AudienceMen    = "MEN"
	AudienceKids   = "KIDS"
	AudienceUnisex = "UNISEX"
)

// AllowedAudiences is the allowlist applied to the audience filter.
var AllowedAudiences = []string{AudienceWomen, AudienceMen, AudienceKids, AudienceUnisex}

// Category groups products for browsing.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"unique;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a catalog entry.
type Product struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"not null;index" json:"name"`
	ShortDescription string     `json:"short_description"`
	Description      string     `gorm:"type:text" json:"description"`
	Price            float64    `gorm:"type:decimal(10,2);not null" json:"price"`
	Image            string     `json:"image"`
	SKU              string     `gorm:"unique;not null" json:"sku"`
	Brand            string     `gorm:"index" json:"brand"`
	Style            string     `json:"style"`
	Audience         string     `gorm:"type:varchar(16);index" json:"audience"`
	Rating           *float64   `gorm:"type:decimal(3,2)" json:"rating"`
	IsFeatured       bool       `gorm:"default:false;index" json:"is_featured"`
	IsNewArrival     bool       `gorm:"default:false;index" json:"is_new_arrival"`
	ColorOptions     StringList `gorm:"type:text" json:"color_options"`
	SizeOptions      StringList `gorm:"type:text" json:"size_options"`
	Materials        StringList `gorm:"type:text" json:"materials"`
	Badges           StringList `gorm:"type:text" json:"badges"`
	CategoryID       uint       `gorm:"index" json:"category_id"`
	Category         *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Inventory        *Inventory `gorm:"foreignKey:ProductID" json:"inventory,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Inventory tracks on-hand stock for a product.
type Inventory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"uniqueIndex;not null" json:"product_id"`
	Quantity  int       `gorm:"default:0" json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductSort enumerates supported catalog orderings.
type ProductSort string

const (
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNewest    ProductSort = "newest"
	SortDefault   ProductSort = ""
)

// ProductFilter is the flat filter object the catalog query layer
// translates into a conjunctive query. Zero values mean "not filtered".
type ProductFilter struct {
	Query      string
	CategoryID uint
	Audience   string
	Brand      string
	Style      string
	PriceMin   *float64
	PriceMax   *float64
	Colors     StringList
	Sizes      StringList
	Materials  StringList
	Badges     StringList
	Featured   bool
	NewArrival bool
	Sort       ProductSort
}
