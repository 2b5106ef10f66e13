package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"seara_joias/internal/model"
)

// Consumer drains the order-event topic into the notification log. Redelivered
// messages hit the unique event_id index and are treated as success.
type Consumer struct {
	r  *kafka.Reader
	db *gorm.DB
}

func NewConsumer(brokers []string, topic, groupID string, db *gorm.DB) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		db: db,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancelled or connection gone
		}

		var e OrderEvent
		if err := json.Unmarshal(m.Value, &e); err != nil {
			log.Printf("consumer unmarshal: %v", err)
			continue
		}
		if err := e.Validate(); err != nil {
			log.Printf("consumer dropping dirty event: %v", err)
			continue
		}

		entry := &model.NotificationEntry{
			EventID: e.EventID,
			OrderID: e.OrderID,
			Status:  e.ToStatus,
			Message: fmt.Sprintf("order %s: %s -> %s", e.OrderID, e.FromStatus, e.ToStatus),
		}
		if err := c.db.Create(entry).Error; err != nil {
			if errorsLikeUnique(err) {
				continue
			}
			log.Printf("consumer notification log: %v", err)
		}
	}
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}
