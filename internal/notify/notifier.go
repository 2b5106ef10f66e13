// Package notify relays the outcome of store and lifecycle operations to
// whatever surface invoked them. It carries no business logic.
package notify

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"seara_joias/internal/lifecycle"
	"seara_joias/internal/model"
	"seara_joias/internal/queue"
	"seara_joias/internal/store"
)

// EventPublisher is the queue side of the facade. Satisfied by
// *queue.Producer; nil disables publishing.
type EventPublisher interface {
	Publish(ctx context.Context, e queue.OrderEvent) error
}

// Notifier fans lifecycle results out to the websocket feed and the event
// topic. Both paths are best-effort: a delivery failure never changes the
// outcome of the operation being reported.
type Notifier struct {
	hub       *Hub
	publisher EventPublisher
}

func NewNotifier(hub *Hub, publisher EventPublisher) *Notifier {
	return &Notifier{hub: hub, publisher: publisher}
}

// OrderTransition implements lifecycle.Reporter.
func (n *Notifier) OrderTransition(o *model.Order, from model.OrderStatus) {
	if n == nil || o == nil {
		return
	}
	if n.hub != nil {
		n.hub.Broadcast(o)
	}
	if n.publisher != nil {
		e := queue.OrderEvent{
			EventID:    uuid.NewString(),
			OrderID:    o.ID,
			Customer:   o.Customer,
			FromStatus: string(from),
			ToStatus:   string(o.Status),
			FinalTotal: o.FinalTotal,
			OccurredAt: time.Now(),
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := n.publisher.Publish(ctx, e); err != nil {
			log.Printf("notify publish order=%s: %v", o.ID, err)
		}
	}
}

// OrderCreated reports a freshly placed order the same way as a transition.
func (n *Notifier) OrderCreated(o *model.Order) {
	n.OrderTransition(o, "")
}

// HTTPError classifies err for the response surface: user-actionable
// failures keep their message and get a 4xx; anything else is an infra
// failure reported generically with a 5xx.
func HTTPError(err error) (int, string) {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "concurrent update, retry the operation"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
