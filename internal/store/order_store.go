package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seara_joias/internal/model"
)

// OrderPatch is a partial order update. Nil fields are left unchanged.
// Totals are recomputed whenever items or the delivery method change.
type OrderPatch struct {
	Customer       *string
	Phone          *string
	Email          *string
	Items          *[]model.OrderItem
	PaymentMethod  *string
	DeliveryMethod *string
}

// OrderStore owns the orders collection. Status transitions with side
// effects belong to the lifecycle manager, not here.
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// DB exposes the underlying handle for transaction composition by the
// lifecycle manager.
func (s *OrderStore) DB() *gorm.DB { return s.db }

// Create validates and persists a new order. Status defaults to
// awaiting_confirmation and totals are computed from the submitted lines.
// Line-item prices are the caller's snapshots and are stored as-is.
func (s *OrderStore) Create(ctx context.Context, o *model.Order) error {
	if err := validateOrder(o); err != nil {
		return err
	}
	generated := o.ID == ""
	if generated {
		o.ID = GenerateOrderID(o.Customer)
	}
	o.Status = model.StatusAwaitingConfirmation
	o.RecomputeTotals()
	err := s.db.WithContext(ctx).Create(o).Error
	if err != nil && generated && errorsLikeUnique(err) {
		// Two checkouts from the same first name in the same millisecond
		// window can collide; fall back to an opaque id.
		o.ID = uuid.NewString()
		err = s.db.WithContext(ctx).Create(o).Error
	}
	return err
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}

// Get returns the order or ErrNotFound.
func (s *OrderStore) Get(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// List returns all orders newest-first.
func (s *OrderStore) List(ctx context.Context) ([]model.Order, error) {
	var list []model.Order
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListByStatus returns orders matching exactly that status, newest-first.
func (s *OrderStore) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown value "+string(status))
	}
	var list []model.Order
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatus writes status and updatedAt only. It carries no stock side
// effects; those are layered on by the lifecycle manager.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error {
	if !status.Valid() {
		return invalid("status", "unknown value "+string(status))
	}
	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Update merges the patch and recomputes totals when needed.
func (s *OrderStore) Update(ctx context.Context, id string, patch OrderPatch) (*model.Order, error) {
	var out *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		recompute := false
		if patch.Customer != nil {
			o.Customer = *patch.Customer
		}
		if patch.Phone != nil {
			o.Phone = *patch.Phone
		}
		if patch.Email != nil {
			o.Email = *patch.Email
		}
		if patch.Items != nil {
			o.Items = *patch.Items
			recompute = true
		}
		if patch.PaymentMethod != nil {
			o.PaymentMethod = *patch.PaymentMethod
		}
		if patch.DeliveryMethod != nil {
			o.DeliveryMethod = *patch.DeliveryMethod
			recompute = true
		}
		if err := validateOrder(&o); err != nil {
			return err
		}
		if recompute {
			o.RecomputeTotals()
		}
		if err := tx.Save(&o).Error; err != nil {
			return err
		}
		out = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the order. No stock reversal happens here; this is the
// admin escape hatch that bypasses reconciliation.
func (s *OrderStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Order{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateOrderID builds the human-readable id used on receipts: the
// customer's first name plus a six-digit time suffix. Falls back to a uuid
// when the name yields no usable prefix.
func GenerateOrderID(customer string) string {
	first := strings.TrimSpace(customer)
	if i := strings.IndexByte(first, ' '); i > 0 {
		first = first[:i]
	}
	first = strings.ToLower(first)
	if first == "" {
		return uuid.NewString()
	}
	suffix := time.Now().UnixMilli() % 1000000
	return fmt.Sprintf("%s-%06d", first, suffix)
}

func validateOrder(o *model.Order) error {
	if strings.TrimSpace(o.Customer) == "" {
		return invalid("customer", "is required")
	}
	if len(o.Items) == 0 {
		return invalid("items", "must not be empty")
	}
	for i, it := range o.Items {
		if it.ProductID == "" {
			return invalid("items", fmt.Sprintf("item %d: product_id is required", i))
		}
		if it.Quantity < 1 {
			return invalid("items", fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
		if it.UnitPrice < 0 {
			return invalid("items", fmt.Sprintf("item %d: unit_price must not be negative", i))
		}
	}
	if !model.ValidPaymentMethod(o.PaymentMethod) {
		return invalid("payment_method", "unknown value "+o.PaymentMethod)
	}
	if !model.ValidDeliveryMethod(o.DeliveryMethod) {
		return invalid("delivery_method", "unknown value "+o.DeliveryMethod)
	}
	return nil
}
