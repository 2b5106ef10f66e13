package model

import (
	"time"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusAwaitingConfirmation OrderStatus = "awaiting_confirmation"
	StatusConfirmed            OrderStatus = "confirmed"
	StatusPicking              OrderStatus = "picking"
	StatusShipped              OrderStatus = "shipped"
	StatusDelivered            OrderStatus = "delivered"
	StatusCancelled            OrderStatus = "cancelled"
)

// statusRank orders the forward lattice. Cancelled sits outside it.
var statusRank = map[OrderStatus]int{
	StatusAwaitingConfirmation: 0,
	StatusConfirmed:            1,
	StatusPicking:              2,
	StatusShipped:              3,
	StatusDelivered:            4,
}

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Rank returns the forward position of s, or -1 for cancelled/unknown.
func (s OrderStatus) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Successor returns the next forward status, if any.
func (s OrderStatus) Successor() (OrderStatus, bool) {
	switch s {
	case StatusAwaitingConfirmation:
		return StatusConfirmed, true
	case StatusConfirmed:
		return StatusPicking, true
	case StatusPicking:
		return StatusShipped, true
	case StatusShipped:
		return StatusDelivered, true
	default:
		return "", false
	}
}

// Payment and delivery methods offered at checkout.
const (
	PaymentPix    = "pix"
	PaymentCredit = "credit"
	PaymentDebit  = "debit"
	PaymentCash   = "cash"

	DeliveryPickup = "pickup"
	DeliveryLocal  = "local"
)

// LocalDeliveryFee is the flat surcharge (cents) for local delivery.
const LocalDeliveryFee int64 = 1000

// DeliveryFeeFor returns the fee implied by the delivery method.
func DeliveryFeeFor(method string) int64 {
	if method == DeliveryLocal {
		return LocalDeliveryFee
	}
	return 0
}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentPix, PaymentCredit, PaymentDebit, PaymentCash:
		return true
	}
	return false
}

// ValidDeliveryMethod reports whether m is an accepted delivery method.
func ValidDeliveryMethod(m string) bool {
	return m == DeliveryPickup || m == DeliveryLocal
}

// OrderItem is a line item with prices snapshotted at checkout time.
// It is never recomputed from the live product record.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

// Order is a customer's cart, snapshotted and persisted at checkout.
// Amounts are in cents.
type Order struct {
	ID        string    `gorm:"primarykey;size:64" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Customer       string      `gorm:"size:128;not null" json:"customer"`
	Phone          string      `gorm:"size:32" json:"phone,omitempty"`
	Email          string      `gorm:"size:128" json:"email,omitempty"`
	Items          []OrderItem `gorm:"serializer:json" json:"items"`
	PaymentMethod  string      `gorm:"size:16;not null" json:"payment_method"`
	DeliveryMethod string      `gorm:"size:16;not null" json:"delivery_method"`
	DeliveryFee    int64       `gorm:"not null" json:"delivery_fee"`
	Subtotal       int64       `gorm:"not null" json:"subtotal"`
	FinalTotal     int64       `gorm:"not null" json:"final_total"`
	Status         OrderStatus `gorm:"size:32;not null;default:'awaiting_confirmation';index" json:"status"`
}

func (Order) TableName() string { return "orders" }

// RecomputeTotals refreshes the derived amounts from the line items and
// delivery method. Line-item unit prices are left untouched.
func (o *Order) RecomputeTotals() {
	var subtotal int64
	for _, it := range o.Items {
		subtotal += it.UnitPrice * it.Quantity
	}
	o.Subtotal = subtotal
	o.DeliveryFee = DeliveryFeeFor(o.DeliveryMethod)
	o.FinalTotal = subtotal + o.DeliveryFee
}
