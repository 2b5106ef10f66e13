package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"seara_joias/internal/lifecycle"
	"seara_joias/internal/model"
	"seara_joias/internal/queue"
	"seara_joias/internal/store"
)

func TestHTTPError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        &store.ValidationError{Field: "customer", Msg: "is required"},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "customer: is required",
		},
		{
			name:       "not found",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantMsg:    "not found",
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("load order: %w", store.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantMsg:    "not found",
		},
		{
			name:       "invalid transition",
			err:        fmt.Errorf("%w: cancelled order", lifecycle.ErrInvalidTransition),
			wantStatus: http.StatusConflict,
			wantMsg:    "invalid status transition: cancelled order",
		},
		{
			name:       "conflict",
			err:        fmt.Errorf("confirm: %w", store.ErrConflict),
			wantStatus: http.StatusConflict,
			wantMsg:    "concurrent update, retry the operation",
		},
		{
			name:       "unknown",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := HTTPError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantMsg, msg)
		})
	}
}

type capturePublisher struct {
	events []queue.OrderEvent
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, e queue.OrderEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func TestNotifierPublishesTransition(t *testing.T) {
	pub := &capturePublisher{}
	n := NewNotifier(NewHub(), pub)

	o := &model.Order{
		ID:         "maria-000123",
		Customer:   "Maria Silva",
		Status:     model.StatusConfirmed,
		FinalTotal: 45700,
	}
	n.OrderTransition(o, model.StatusAwaitingConfirmation)

	if assert.Len(t, pub.events, 1) {
		e := pub.events[0]
		assert.NotEmpty(t, e.EventID)
		assert.Equal(t, "maria-000123", e.OrderID)
		assert.Equal(t, string(model.StatusAwaitingConfirmation), e.FromStatus)
		assert.Equal(t, string(model.StatusConfirmed), e.ToStatus)
		assert.Equal(t, int64(45700), e.FinalTotal)
		assert.False(t, e.OccurredAt.IsZero())
	}
}

func TestNotifierSwallowsPublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	n := NewNotifier(nil, pub)

	// Must not panic or surface the error.
	n.OrderTransition(&model.Order{ID: "x"}, model.StatusAwaitingConfirmation)
	assert.Len(t, pub.events, 1)
}

func TestNotifierNilSafety(t *testing.T) {
	var n *Notifier
	n.OrderTransition(&model.Order{ID: "x"}, model.StatusConfirmed)

	n2 := NewNotifier(nil, nil)
	n2.OrderTransition(nil, model.StatusConfirmed)
	n2.OrderCreated(&model.Order{ID: "y"})
}
