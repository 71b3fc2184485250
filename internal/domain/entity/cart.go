package entity

import (
	"encoding/json"

	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/pkg/money"
)

// CartLine is one line of an open cart. Catalog lines carry a ProductID and
// Tier; manual lines carry neither.
type CartLine struct {
	Kind        enum.LineKind
	ProductID   int64
	Description string
	Tier        enum.PricingTier
	UnitPrice   int64 // Snapshotted at add time, in cents
	Quantity    int
}

// IsCatalog reports whether the line reserves inventory
func (l CartLine) IsCatalog() bool {
	return l.Kind == enum.LineKindCatalog
}

// Subtotal returns unit price times quantity in cents. The cart store keeps
// it within money.MaxCents.
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// MarshalJSON renders the line the way the register client expects it
func (l CartLine) MarshalJSON() ([]byte, error) {
	var productID *int64
	var tier *enum.PricingTier
	if l.IsCatalog() {
		id, t := l.ProductID, l.Tier
		productID, tier = &id, &t
	}
	return json.Marshal(struct {
		Kind      enum.LineKind     `json:"tipo"`
		ProductID *int64            `json:"id"`
		Name      string            `json:"nombre"`
		UnitPrice float64           `json:"precio"`
		Quantity  int               `json:"cantidad"`
		Tier      *enum.PricingTier `json:"tipo_precio"`
		Subtotal  float64           `json:"subtotal"`
	}{
		Kind:      l.Kind,
		ProductID: productID,
		Name:      l.Description,
		UnitPrice: money.Decimal(l.UnitPrice),
		Quantity:  l.Quantity,
		Tier:      tier,
		Subtotal:  money.Decimal(l.Subtotal()),
	})
}

// Cart is the in-progress sale of one session
type Cart struct {
	SessionID string
	Lines     []CartLine
}

// Total sums every line in cents
func (c Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// TotalItems sums line quantities
func (c Cart) TotalItems() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Reservations returns the reserved quantity per product across catalog lines
func (c Cart) Reservations() map[int64]int {
	out := make(map[int64]int)
	for _, l := range c.Lines {
		if l.IsCatalog() {
			out[l.ProductID] += l.Quantity
		}
	}
	return out
}

// Clone returns a copy that shares no backing array with c
func (c Cart) Clone() Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{SessionID: c.SessionID, Lines: lines}
}

// MarshalJSON renders {items, total}
func (c Cart) MarshalJSON() ([]byte, error) {
	items := c.Lines
	if items == nil {
		items = []CartLine{}
	}
	return json.Marshal(struct {
		Items []CartLine `json:"items"`
		Total float64    `json:"total"`
	}{
		Items: items,
		Total: money.Decimal(c.Total()),
	})
}
