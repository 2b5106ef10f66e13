// Package cart accumulates line items client-side before checkout. It is
// pure state handling: the only side effect is the order submission at
// checkout time.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"seara_joias/internal/model"
)

// Line is one accumulated cart entry. Price and name are snapshots taken
// when the item was added.
type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

// CheckoutInfo is what the customer fills in at submission time.
type CheckoutInfo struct {
	Customer       string `json:"customer"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	PaymentMethod  string `json:"payment_method"`
	DeliveryMethod string `json:"delivery_method"`
}

// OrderPlacer submits the assembled order. Satisfied by *store.OrderStore.
type OrderPlacer interface {
	Create(ctx context.Context, o *model.Order) error
}

// Cart holds lines until checkout. Not safe for concurrent use; each
// client session owns its cart.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart { return &Cart{} }

// Add merges the item into the cart, summing quantities for an existing
// product id. Quantities are stored as submitted; a non-positive quantity
// is rejected by order validation at checkout, not silently corrected here.
func (c *Cart) Add(item Line) {
	for i := range c.lines {
		if c.lines[i].ProductID == item.ProductID {
			c.lines[i].Quantity += item.Quantity
			return
		}
	}
	c.lines = append(c.lines, item)
}

// Remove drops the line for the given product id, if present.
func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// SetQuantity replaces a line's quantity; n <= 0 removes the line.
func (c *Cart) SetQuantity(productID string, n int64) {
	if n <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity = n
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() { c.lines = nil }

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalItems is the summed quantity across all lines.
func (c *Cart) TotalItems() int64 {
	var n int64
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal is the summed line totals in cents.
func (c *Cart) Subtotal() int64 {
	var n int64
	for _, l := range c.lines {
		n += l.UnitPrice * l.Quantity
	}
	return n
}

// DeliveryFee derives the surcharge for the chosen delivery method.
func (c *Cart) DeliveryFee(method string) int64 {
	return model.DeliveryFeeFor(method)
}

// FinalTotal is subtotal plus delivery fee.
func (c *Cart) FinalTotal(method string) int64 {
	return c.Subtotal() + c.DeliveryFee(method)
}

// MarshalJSON / UnmarshalJSON make the cart round-trippable for
// client-local persistence across page reloads.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.lines)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.lines)
}

// Checkout converts the accumulated lines 1:1 into an order and submits
// it. The cart is cleared only after the create call succeeds.
func (c *Cart) Checkout(ctx context.Context, placer OrderPlacer, info CheckoutInfo) (*model.Order, error) {
	if len(c.lines) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}
	items := make([]model.OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, model.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Image:     l.Image,
		})
	}
	o := &model.Order{
		Customer:       info.Customer,
		Phone:          info.Phone,
		Email:          info.Email,
		Items:          items,
		PaymentMethod:  info.PaymentMethod,
		DeliveryMethod: info.DeliveryMethod,
	}
	if err := placer.Create(ctx, o); err != nil {
		return nil, err
	}
	c.Clear()
	return o, nil
}

// WhatsAppLink renders the store's checkout hand-off message and wraps it
// in a wa.me link, matching the receipt the shop sends today.
func WhatsAppLink(storePhone string, o *model.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*NOVO PEDIDO #%s*\n\n", o.ID)
	fmt.Fprintf(&b, "*Cliente:* %s\n", o.Customer)
	fmt.Fprintf(&b, "*Forma de Pagamento:* %s\n", paymentMethodText(o.PaymentMethod))
	fmt.Fprintf(&b, "*Forma de Entrega:* %s\n\n", deliveryMethodText(o.DeliveryMethod))
	b.WriteString("*ITENS DO PEDIDO:*\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %dx %s - R$ %s\n", it.Quantity, it.Name, formatPrice(it.UnitPrice*it.Quantity))
		if it.Image != "" {
			fmt.Fprintf(&b, "  Imagem: %s\n", it.Image)
		}
	}
	fmt.Fprintf(&b, "\n*Subtotal:* R$ %s", formatPrice(o.Subtotal))
	if o.DeliveryFee > 0 {
		fmt.Fprintf(&b, "\n*Taxa de entrega:* R$ %s", formatPrice(o.DeliveryFee))
	}
	fmt.Fprintf(&b, "\n*Total:* R$ %s\n", formatPrice(o.FinalTotal))
	return "https://wa.me/" + storePhone + "?text=" + url.QueryEscape(b.String())
}

func paymentMethodText(method string) string {
	switch method {
	case model.PaymentPix:
		return "PIX"
	case model.PaymentCredit:
		return "Cartão de crédito"
	case model.PaymentDebit:
		return "Cartão de débito"
	case model.PaymentCash:
		return "Dinheiro"
	}
	return ""
}

func deliveryMethodText(method string) string {
	switch method {
	case model.DeliveryPickup:
		return "Retirada no local"
	case model.DeliveryLocal:
		return "Entrega em Seara-SC (+R$10,00)"
	}
	return ""
}

// formatPrice renders cents as the Brazilian "1.234,56" decimal format.
func formatPrice(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	digits := fmt.Sprintf("%d", whole)
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	s := strings.Join(parts, ".")
	out := fmt.Sprintf("%s,%02d", s, frac)
	if neg {
		return "-" + out
	}
	return out
}
