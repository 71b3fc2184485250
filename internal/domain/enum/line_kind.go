package enum

import (
	"database/sql/driver"
	"fmt"
)

// LineKind tags a cart or sale line as catalog-backed or free-form
type LineKind string

const (
	LineKindCatalog LineKind = "catalogo"
	LineKindManual  LineKind = "manual"
)

func (k LineKind) String() string {
	return string(k)
}

func (k LineKind) Value() (driver.Value, error) {
	return string(k), nil
}

func (k *LineKind) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*k = LineKind(v)
	case []byte:
		*k = LineKind(v)
	default:
		return fmt.Errorf("cannot scan %T into LineKind", value)
	}
	return nil
}
