package service

import (
	"fmt"

	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/pkg/apperror"
)

// ResolveUnitPrice returns the unit price in cents a product sells at for a
// tier. It reads nothing but its arguments.
func ResolveUnitPrice(product *entity.Product, tier enum.PricingTier) (int64, error) {
	if !tier.IsValid() {
		return 0, apperror.NewValidationError("Unknown pricing tier",
			apperror.FieldError{Field: "tipo_precio", Message: fmt.Sprintf("unknown tier %q", tier)})
	}

	price := product.PriceFor(tier)
	if price <= 0 {
		return 0, apperror.NewValidationError(
			fmt.Sprintf("Product %q has no %s price", product.Name, tier),
			apperror.FieldError{Field: "tipo_precio", Message: "product not priced for tier"})
	}
	return price, nil
}
