package entity

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/pkg/money"
	"gorm.io/gorm"
)

// ErrSaleImmutable is returned by the gorm hooks that guard finalized sales
var ErrSaleImmutable = errors.New("sales are append-only")

// Sale is the immutable record produced by a successful checkout
type Sale struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptNo     string             `gorm:"size:50;unique;not null" json:"numero"`
	SessionID     string             `gorm:"size:64;not null;index" json:"sesion_id"`
	UserID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"usuario_id"`
	CustomerRef   string             `gorm:"size:50;not null;index" json:"dni_cliente"`
	PaymentMethod enum.PaymentMethod `gorm:"size:30;not null;index" json:"metodo_pago"`
	Total         int64              `gorm:"not null" json:"-"` // Stored in cents, excluded from JSON
	TotalItems    int                `gorm:"not null" json:"total_items"`
	SoldAt        time.Time          `gorm:"not null;index" json:"fecha"`
	CreatedAt     time.Time          `json:"created_at"`

	Lines []SaleLine `gorm:"foreignKey:SaleID" json:"items"`
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (s Sale) MarshalJSON() ([]byte, error) {
	type Alias Sale
	lines := s.Lines
	if lines == nil {
		lines = []SaleLine{}
	}
	return json.Marshal(&struct {
		Alias
		Total float64    `json:"total"`
		Lines []SaleLine `json:"items"`
	}{
		Alias: Alias(s),
		Total: money.Decimal(s.Total),
		Lines: lines,
	})
}

// BeforeCreate generates a UUID before creating a new sale
func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate rejects any update to a stored sale
func (s *Sale) BeforeUpdate(tx *gorm.DB) error {
	return ErrSaleImmutable
}

// BeforeDelete rejects any delete of a stored sale
func (s *Sale) BeforeDelete(tx *gorm.DB) error {
	return ErrSaleImmutable
}

// TableName returns the table name for the Sale model
func (Sale) TableName() string {
	return "sales"
}

// SaleLine is a frozen copy of a cart line
type SaleLine struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key" json:"-"`
	SaleID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"-"`
	Position    int              `gorm:"not null" json:"posicion"`
	Kind        enum.LineKind    `gorm:"size:20;not null" json:"tipo"`
	ProductID   *int64           `gorm:"index" json:"id"`
	Description string           `gorm:"size:255;not null" json:"nombre"`
	Tier        enum.PricingTier `gorm:"size:20" json:"tipo_precio,omitempty"`
	UnitPrice   int64            `gorm:"not null" json:"-"` // Stored in cents, excluded from JSON
	Quantity    int              `gorm:"not null" json:"cantidad"`
	Total       int64            `gorm:"not null" json:"-"` // Stored in cents, excluded from JSON
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (l SaleLine) MarshalJSON() ([]byte, error) {
	type Alias SaleLine
	return json.Marshal(&struct {
		Alias
		UnitPrice float64 `json:"precio"`
		Total     float64 `json:"subtotal"`
	}{
		Alias:     Alias(l),
		UnitPrice: money.Decimal(l.UnitPrice),
		Total:     money.Decimal(l.Total),
	})
}

// BeforeCreate generates a UUID before creating a new sale line
func (l *SaleLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate rejects any update to a stored sale line
func (l *SaleLine) BeforeUpdate(tx *gorm.DB) error {
	return ErrSaleImmutable
}

// BeforeDelete rejects any delete of a stored sale line
func (l *SaleLine) BeforeDelete(tx *gorm.DB) error {
	return ErrSaleImmutable
}

// TableName returns the table name for the SaleLine model
func (SaleLine) TableName() string {
	return "sale_lines"
}

// NewSaleLines freezes cart lines into sale lines, keeping their order
func NewSaleLines(lines []CartLine) []SaleLine {
	out := make([]SaleLine, 0, len(lines))
	for i, l := range lines {
		sl := SaleLine{
			Position:    i,
			Kind:        l.Kind,
			Description: l.Description,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Total:       l.Subtotal(),
		}
		if l.IsCatalog() {
			id := l.ProductID
			sl.ProductID = &id
			sl.Tier = l.Tier
		}
		out = append(out, sl)
	}
	return out
}
