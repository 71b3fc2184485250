package request

import (
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/pkg/apperror"
	"github.com/sangkips/caja-api/pkg/money"
	"github.com/shopspring/decimal"
)

// AddCatalogItemRequest adds a catalog product to the cart. Precio, when
// sent, is the price the client displayed and must match the catalog.
type AddCatalogItemRequest struct {
	ProductID int64            `json:"producto_id" binding:"required,gt=0"`
	Quantity  *int             `json:"cantidad" binding:"required"`
	Price     *decimal.Decimal `json:"precio"`
	Tier      string           `json:"tipo_precio" binding:"required"`
}

// PricingTier returns the parsed tier, or the raw value so the cart can
// report it as invalid
func (r *AddCatalogItemRequest) PricingTier() enum.PricingTier {
	tier, err := enum.ParsePricingTier(r.Tier)
	if err != nil {
		return enum.PricingTier(r.Tier)
	}
	return tier
}

// ExpectedPrice returns the client price in cents, nil when absent
func (r *AddCatalogItemRequest) ExpectedPrice() (*int64, error) {
	if r.Price == nil {
		return nil, nil
	}
	cents, err := priceCents(*r.Price)
	if err != nil {
		return nil, err
	}
	return &cents, nil
}

// AddManualItemRequest adds a free-form line
type AddManualItemRequest struct {
	Name     string           `json:"nombre" binding:"required"`
	Price    *decimal.Decimal `json:"precio" binding:"required"`
	Quantity *int             `json:"cantidad" binding:"required"`
}

// UnitPrice returns the price in cents
func (r *AddManualItemRequest) UnitPrice() (int64, error) {
	return priceCents(*r.Price)
}

func priceCents(d decimal.Decimal) (int64, error) {
	cents, err := money.ToCents(d)
	if err != nil {
		return 0, apperror.NewValidationError("Invalid price",
			apperror.FieldError{Field: "precio", Message: "exceeds the maximum amount"})
	}
	return cents, nil
}

// CheckoutRequest records the cart of the current session as a sale. Both
// fields are checked by the checkout itself, after the cart.
type CheckoutRequest struct {
	CustomerRef   string `json:"dni_cliente"`
	PaymentMethod string `json:"metodo_pago"`
}
