package model

import (
	"time"
)

// Promotion presentation types used by the storefront badges.
const (
	PromotionNew        = "new"
	PromotionBestseller = "bestseller"
	PromotionLimited    = "limited"
	PromotionSale       = "sale"
)

// Promotion is the optional promotion sub-record attached to a product.
// Stored as a JSON column; Product.PromotionActive mirrors the Active flag
// so list queries can filter without unpacking JSON.
type Promotion struct {
	Active             bool       `json:"active"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	DiscountPercentage int        `json:"discount_percentage"`
	Badge              string     `json:"badge,omitempty"`
	Type               string     `json:"type,omitempty"`
}

// Product is a catalog item. Prices are in cents.
type Product struct {
	ID        string    `gorm:"primarykey;size:64" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name          string     `gorm:"size:128;not null" json:"name"`
	Description   string     `gorm:"size:2048" json:"description"`
	OriginalPrice int64      `gorm:"not null" json:"original_price"`
	CurrentPrice  int64      `gorm:"not null" json:"current_price"`
	Category      string     `gorm:"size:64;not null;index" json:"category"`
	Images        []string   `gorm:"serializer:json" json:"images"`
	Features      []string   `gorm:"serializer:json" json:"features"`
	Stock         int64      `gorm:"not null;default:0" json:"stock"`
	Promotion     *Promotion `gorm:"serializer:json" json:"promotion,omitempty"`

	PromotionActive bool `gorm:"not null;default:false;index" json:"-"`
}

func (Product) TableName() string { return "products" }

// SyncPromotion keeps the indexed flag consistent with the sub-record.
func (p *Product) SyncPromotion() {
	p.PromotionActive = p.Promotion != nil && p.Promotion.Active
}
