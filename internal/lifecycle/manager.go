// Package lifecycle enforces order status transitions and the at-most-once
// stock decrement that rides on the confirmation edge.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seara_joias/internal/model"
	"seara_joias/internal/store"
)

// ErrInvalidTransition signals a status change that is not a legal edge of
// the lifecycle lattice.
var ErrInvalidTransition = errors.New("invalid status transition")

// maxTxAttempts bounds retries for transient lock contention.
const maxTxAttempts = 3

// ClampedItem records a line whose decrement could not be applied in full.
type ClampedItem struct {
	ProductID string `json:"product_id"`
	Requested int64  `json:"requested"`
	Applied   int64  `json:"applied"`
}

// ConfirmResult reports what a confirmation actually did.
type ConfirmResult struct {
	AlreadyConfirmed bool          `json:"already_confirmed"`
	Clamped          []ClampedItem `json:"clamped,omitempty"`
	MissingProducts  []string      `json:"missing_products,omitempty"`
}

// Reporter receives successful transitions for out-of-band surfacing
// (websocket feed, event topic). Failures never affect the operation.
type Reporter interface {
	OrderTransition(o *model.Order, from model.OrderStatus)
}

// Manager is the only component allowed to couple status transitions with
// stock effects.
type Manager struct {
	db       *gorm.DB
	reporter Reporter
}

func NewManager(db *gorm.DB, reporter Reporter) *Manager {
	return &Manager{db: db, reporter: reporter}
}

// Confirm moves the order into confirmed and decrements stock for each
// line, all inside one transaction. Confirming an already-confirmed (or
// further advanced) order is a no-op success, so the decrement fires at
// most once per order.
//
// A line whose product no longer exists is logged and skipped rather than
// failing the whole confirmation: blocking a multi-item order on one
// missing product is worse than inventory drift on that item.
func (m *Manager) Confirm(ctx context.Context, orderID string) (*ConfirmResult, error) {
	var (
		res   ConfirmResult
		order *model.Order
		from  model.OrderStatus
	)
	err := m.withRetry(ctx, func(tx *gorm.DB) error {
		res = ConfirmResult{}

		var o model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}

		if o.Status == model.StatusCancelled {
			return fmt.Errorf("%w: order %s is cancelled", ErrInvalidTransition, orderID)
		}
		if o.Status.Rank() >= model.StatusConfirmed.Rank() {
			res.AlreadyConfirmed = true
			order, from = &o, o.Status
			return nil
		}

		for _, it := range o.Items {
			applied, err := store.DecrementStockTx(tx, o.ID, it.ProductID, it.Quantity)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					log.Printf("confirm %s: product %s missing, skipping decrement", o.ID, it.ProductID)
					res.MissingProducts = append(res.MissingProducts, it.ProductID)
					continue
				}
				return err
			}
			if applied < it.Quantity {
				res.Clamped = append(res.Clamped, ClampedItem{
					ProductID: it.ProductID,
					Requested: it.Quantity,
					Applied:   applied,
				})
			}
		}

		from = o.Status
		o.Status = model.StatusConfirmed
		o.UpdatedAt = time.Now()
		if err := tx.Save(&o).Error; err != nil {
			return err
		}
		order = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !res.AlreadyConfirmed {
		m.report(order, from)
	}
	return &res, nil
}

// Advance performs a plain forward transition with no stock effects. The
// target must be the immediate successor of the current status; the edge
// into confirmed must go through Confirm instead.
func (m *Manager) Advance(ctx context.Context, orderID string, target model.OrderStatus) error {
	if !target.Valid() || target == model.StatusCancelled {
		return fmt.Errorf("%w: target %q", ErrInvalidTransition, target)
	}
	var (
		order *model.Order
		from  model.OrderStatus
	)
	err := m.withRetry(ctx, func(tx *gorm.DB) error {
		var o model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		next, ok := o.Status.Successor()
		if !ok || next != target {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
		}
		if target == model.StatusConfirmed {
			return fmt.Errorf("%w: %s -> %s requires confirmation", ErrInvalidTransition, o.Status, target)
		}
		from = o.Status
		o.Status = target
		o.UpdatedAt = time.Now()
		if err := tx.Save(&o).Error; err != nil {
			return err
		}
		order = &o
		return nil
	})
	if err != nil {
		return err
	}
	m.report(order, from)
	return nil
}

// Cancel writes cancelled. Permitted until the order ships; cancelling an
// already-cancelled order is a no-op success. No restock happens here.
func (m *Manager) Cancel(ctx context.Context, orderID string) error {
	var (
		order *model.Order
		from  model.OrderStatus
	)
	err := m.withRetry(ctx, func(tx *gorm.DB) error {
		var o model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return err
		}
		if o.Status == model.StatusCancelled {
			order = nil
			return nil
		}
		if o.Status.Rank() >= model.StatusShipped.Rank() {
			return fmt.Errorf("%w: cannot cancel a %s order", ErrInvalidTransition, o.Status)
		}
		from = o.Status
		o.Status = model.StatusCancelled
		o.UpdatedAt = time.Now()
		if err := tx.Save(&o).Error; err != nil {
			return err
		}
		order = &o
		return nil
	})
	if err != nil {
		return err
	}
	if order != nil {
		m.report(order, from)
	}
	return nil
}

// withRetry runs fn in a transaction, retrying a bounded number of times on
// transient lock contention. Exhausting the budget surfaces ErrConflict so
// the caller knows the whole operation is safely retryable.
func (m *Manager) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = m.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 20 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %v", store.ErrConflict, err)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") || strings.Contains(s, "SQLITE_BUSY")
}

func (m *Manager) report(o *model.Order, from model.OrderStatus) {
	if m.reporter == nil || o == nil {
		return
	}
	m.reporter.OrderTransition(o, from)
}
