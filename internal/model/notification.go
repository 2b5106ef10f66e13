package model

import (
	"time"
)

// NotificationEntry is the durable trail of surfaced lifecycle events.
// EventID is unique so replayed queue messages are absorbed.
type NotificationEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	EventID string `gorm:"size:64;uniqueIndex;not null" json:"event_id"`
	OrderID string `gorm:"size:64;not null;index" json:"order_id"`
	Status  string `gorm:"size:32;not null" json:"status"`
	Message string `gorm:"size:512" json:"message"`
}

func (NotificationEntry) TableName() string { return "notification_log" }
