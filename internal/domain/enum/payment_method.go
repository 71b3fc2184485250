package enum

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// PaymentMethod is how a sale was settled at the counter
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "efectivo"
	PaymentMethodDebit    PaymentMethod = "debito"
	PaymentMethodCredit   PaymentMethod = "credito"
	PaymentMethodTransfer PaymentMethod = "transferencia"
)

// DefaultPaymentMethods is the supported set when none is configured
var DefaultPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodDebit,
	PaymentMethodCredit,
	PaymentMethodTransfer,
}

// NormalizePaymentMethod lowercases and trims the client value
func NormalizePaymentMethod(s string) PaymentMethod {
	return PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Value() (driver.Value, error) {
	return string(m), nil
}

func (m *PaymentMethod) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = ""
	case string:
		*m = PaymentMethod(v)
	case []byte:
		*m = PaymentMethod(v)
	default:
		return fmt.Errorf("cannot scan %T into PaymentMethod", value)
	}
	return nil
}
