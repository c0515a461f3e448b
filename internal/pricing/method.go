package pricing

import (
	"errors"
	"strings"
)

// Method identifies how a sale is settled.
type Method string

const (
	MethodCashUSD       Method = "cash_usd"
	MethodCashVES       Method = "cash_ves"
	MethodCard          Method = "card"
	MethodTransfer      Method = "transfer"
	MethodMobilePayment Method = "mobile_payment"
	MethodMixed         Method = "mixed"
)

// ErrInvalidMethod is returned for unknown payment method identifiers.
var ErrInvalidMethod = errors.New("pricing: unknown payment method")

// ParseMethod normalises and validates a payment method identifier.
func ParseMethod(value string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(value))) {
	case MethodCashUSD:
		return MethodCashUSD, nil
	case MethodCashVES:
		return MethodCashVES, nil
	case MethodCard:
		return MethodCard, nil
	case MethodTransfer:
		return MethodTransfer, nil
	case MethodMobilePayment:
		return MethodMobilePayment, nil
	case MethodMixed:
		return MethodMixed, nil
	default:
		return "", ErrInvalidMethod
	}
}

// RequiresCash reports whether the method settles in cash and therefore needs
// tendered amounts and change computation.
func (m Method) RequiresCash() bool {
	switch m {
	case MethodCashUSD, MethodCashVES, MethodMixed:
		return true
	default:
		return false
	}
}
