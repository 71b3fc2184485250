package entity

import (
	"encoding/json"
	"time"

	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/pkg/money"
)

// Product is a catalog item. Catalog maintenance happens elsewhere; this
// service reads products and decrements stock at checkout.
type Product struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Name          string    `gorm:"size:255;not null;index"`
	Code          string    `gorm:"size:100;index"`
	Category      string    `gorm:"size:100"`
	Stock         int       `gorm:"not null;default:0;check:stock >= 0"`
	RetailPrice   int64     `gorm:"not null;default:0"` // Stored in cents
	ResellerPrice int64     `gorm:"not null;default:0"` // Stored in cents
	Active        bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// PriceFor returns the stored price for a tier, or 0 for an unknown tier
func (p *Product) PriceFor(tier enum.PricingTier) int64 {
	switch tier {
	case enum.PricingTierRetail:
		return p.RetailPrice
	case enum.PricingTierReseller:
		return p.ResellerPrice
	}
	return 0
}

// ProductListing is a product annotated with what open carts leave available
type ProductListing struct {
	Product
	Available int
}

// MarshalJSON converts ProductListing to JSON with decimal prices
func (l ProductListing) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID            int64   `json:"id"`
		Name          string  `json:"nombre"`
		Code          string  `json:"codigo"`
		Category      string  `json:"categoria"`
		RetailPrice   float64 `json:"precio"`
		ResellerPrice float64 `json:"precio_revendedor"`
		Stock         int     `json:"stock"`
		Available     int     `json:"disponible"`
	}{
		ID:            l.ID,
		Name:          l.Name,
		Code:          l.Code,
		Category:      l.Category,
		RetailPrice:   money.Decimal(l.RetailPrice),
		ResellerPrice: money.Decimal(l.ResellerPrice),
		Stock:         l.Stock,
		Available:     l.Available,
	})
}
