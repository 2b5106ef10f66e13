package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seara_joias/internal/model"
)

// ProductFilter narrows List results. Zero value means no filtering.
type ProductFilter struct {
	Category      string
	PromotionOnly bool
}

// ProductPatch is a partial update. Nil fields are left unchanged.
type ProductPatch struct {
	Name          *string
	Description   *string
	OriginalPrice *int64
	CurrentPrice  *int64
	Category      *string
	Images        *[]string
	Features      *[]string
	Stock         *int64
	Promotion     **model.Promotion
}

// ProductStore owns the products collection and every stock mutation.
type ProductStore struct {
	db *gorm.DB
}

func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db}
}

// Get returns the product or ErrNotFound. It never fails for a missing id
// with a driver-level error.
func (s *ProductStore) Get(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns products newest-first. An empty result is not an error.
func (s *ProductStore) List(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	q := s.db.WithContext(ctx).Model(&model.Product{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.PromotionOnly {
		q = q.Where("promotion_active = ?", true)
	}
	var list []model.Product
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Create validates and persists a new product, assigning its id when absent.
func (s *ProductStore) Create(ctx context.Context, p *model.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.SyncPromotion()
	return s.db.WithContext(ctx).Create(p).Error
}

// Update merges the patch into the stored record and refreshes updatedAt.
func (s *ProductStore) Update(ctx context.Context, id string, patch ProductPatch) (*model.Product, error) {
	var out *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		applyProductPatch(&p, patch)
		if err := validateProduct(&p); err != nil {
			return err
		}
		p.SyncPromotion()
		if err := tx.Save(&p).Error; err != nil {
			return err
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the product. Cleaning up blob-store images referenced by
// the record is the caller's responsibility.
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock atomically decrements stock for one product inside its own
// transaction. See DecrementStockTx for the semantics.
func (s *ProductStore) DecrementStock(ctx context.Context, orderID, productID string, quantity int64) (int64, error) {
	var applied int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = DecrementStockTx(tx, orderID, productID, quantity)
		return err
	})
	return applied, err
}

// DecrementStockTx is the single path for stock mutation. It locks the row,
// clamps the decrement at zero, and writes an audit row when the requested
// quantity could not be applied in full. It must run inside a transaction.
func DecrementStockTx(tx *gorm.DB, orderID, productID string, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, invalid("quantity", "must be positive")
	}

	var p model.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	applied := quantity
	if applied > p.Stock {
		applied = p.Stock
	}
	p.Stock -= applied
	p.UpdatedAt = time.Now()
	if err := tx.Save(&p).Error; err != nil {
		return 0, err
	}

	if applied < quantity {
		adj := model.StockAdjustment{
			OrderID:   orderID,
			ProductID: productID,
			Requested: quantity,
			Applied:   applied,
			Reason:    "insufficient stock, clamped at zero",
		}
		if err := tx.Create(&adj).Error; err != nil {
			return 0, err
		}
		log.Printf("stock clamped: order=%s product=%s requested=%d applied=%d",
			orderID, productID, quantity, applied)
	}
	return applied, nil
}

func validateProduct(p *model.Product) error {
	if p.Name == "" {
		return invalid("name", "is required")
	}
	if p.Category == "" {
		return invalid("category", "is required")
	}
	if p.OriginalPrice < 0 {
		return invalid("original_price", "must not be negative")
	}
	if p.CurrentPrice < 0 {
		return invalid("current_price", "must not be negative")
	}
	if p.Stock < 0 {
		return invalid("stock", "must not be negative")
	}
	return nil
}

func applyProductPatch(p *model.Product, patch ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.OriginalPrice != nil {
		p.OriginalPrice = *patch.OriginalPrice
	}
	if patch.CurrentPrice != nil {
		p.CurrentPrice = *patch.CurrentPrice
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Images != nil {
		p.Images = *patch.Images
	}
	if patch.Features != nil {
		p.Features = *patch.Features
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Promotion != nil {
		p.Promotion = *patch.Promotion
	}
}
