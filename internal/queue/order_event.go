package queue

import (
	"fmt"
	"time"
)

// OrderEvent is the lifecycle change record written to Kafka.
type OrderEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	Customer   string    `json:"customer"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	FinalTotal int64     `json:"final_total"` // cents
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate does minimal field checks so consumers never process dirty
// messages.
func (e OrderEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.OrderID == "" {
		return fmt.Errorf("order_id is required")
	}
	if e.ToStatus == "" {
		return fmt.Errorf("to_status is required")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	return nil
}
