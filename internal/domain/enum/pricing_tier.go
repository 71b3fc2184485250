package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PricingTier selects which product price applies to a cart line
type PricingTier string

const (
	PricingTierRetail   PricingTier = "venta"
	PricingTierReseller PricingTier = "revendedor"
)

// ParsePricingTier accepts the wire values and their english aliases
func ParsePricingTier(s string) (PricingTier, error) {
	switch s {
	case "venta", "retail":
		return PricingTierRetail, nil
	case "revendedor", "reseller":
		return PricingTierReseller, nil
	}
	return "", fmt.Errorf("unknown pricing tier %q", s)
}

func (t PricingTier) String() string {
	return string(t)
}

// IsValid reports whether t is one of the known tiers
func (t PricingTier) IsValid() bool {
	return t == PricingTierRetail || t == PricingTierReseller
}

func (t *PricingTier) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParsePricingTier(str)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t PricingTier) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *PricingTier) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = ""
	case string:
		*t = PricingTier(v)
	case []byte:
		*t = PricingTier(v)
	default:
		return fmt.Errorf("cannot scan %T into PricingTier", value)
	}
	return nil
}
