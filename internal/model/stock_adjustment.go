package model

import (
	"time"
)

// StockAdjustment is an audit row written whenever a stock decrement could
// not be applied in full and was clamped at zero. Overselling is tolerated
// but never silent.
type StockAdjustment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID   string `gorm:"size:64;not null;index" json:"order_id"`
	ProductID string `gorm:"size:64;not null;index" json:"product_id"`
	Requested int64  `gorm:"not null" json:"requested"`
	Applied   int64  `gorm:"not null" json:"applied"`
	Reason    string `gorm:"size:255" json:"reason"`
}

func (StockAdjustment) TableName() string { return "stock_adjustments" }
