// Package pricing implements the sale-totals and tender/change calculator
// shared by every component that needs totals. All arithmetic runs on
// shopspring decimals at full precision; rounding to two places happens only
// when a figure is persisted or rendered.
package pricing

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidRate is returned when the USD to VES exchange rate is not positive.
var ErrInvalidRate = errors.New("pricing: exchange rate must be positive")

// ErrInvalidLine is returned when a cart line carries a negative unit price or
// a non-positive quantity.
var ErrInvalidLine = errors.New("pricing: invalid cart line")

// Line is a single cart position priced in USD.
type Line struct {
	ProductID    uuid.UUID
	UnitPriceUSD decimal.Decimal
	Qty          int
}

// Totals aggregates the computed sale figures in both currencies. Values are
// unrounded; call Rounded before persisting or rendering.
type Totals struct {
	SubtotalUSD decimal.Decimal
	SubtotalVES decimal.Decimal
	DiscountUSD decimal.Decimal
	DiscountVES decimal.Decimal
	TaxUSD      decimal.Decimal
	TaxVES      decimal.Decimal
	TotalUSD    decimal.Decimal
	TotalVES    decimal.Decimal
}

// Change reports the outcome of a cash tender against a sale total.
type Change struct {
	ChangeUSD   decimal.Decimal
	ChangeVES   decimal.Decimal
	ReceivedUSD decimal.Decimal
	Sufficient  bool
}

// TaxRateFromBps converts a basis-point tax rate into its decimal fraction.
func TaxRateFromBps(bps int) decimal.Decimal {
	if bps < 0 {
		bps = 0
	}
	return decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(10000))
}

// Round2 rounds a monetary value to two fractional digits.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// ComputeTotals calculates subtotal, clamped discount, tax and grand total for
// the given lines. An empty cart yields all-zero totals. Each VES figure is
// derived from its unrounded USD counterpart so conversion never compounds
// rounding error.
func ComputeTotals(lines []Line, discountUSD, rate, taxRate decimal.Decimal) (Totals, error) {
	if rate.Sign() <= 0 {
		return Totals{}, ErrInvalidRate
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Qty <= 0 || line.UnitPriceUSD.Sign() < 0 {
			return Totals{}, ErrInvalidLine
		}
		subtotal = subtotal.Add(line.UnitPriceUSD.Mul(decimal.NewFromInt(int64(line.Qty))))
	}

	discount := discountUSD
	if discount.Sign() < 0 {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate)
	total := taxable.Add(tax)

	return Totals{
		SubtotalUSD: subtotal,
		SubtotalVES: subtotal.Mul(rate),
		DiscountUSD: discount,
		DiscountVES: discount.Mul(rate),
		TaxUSD:      tax,
		TaxVES:      tax.Mul(rate),
		TotalUSD:    total,
		TotalVES:    total.Mul(rate),
	}, nil
}

// ComputeChange converts the tendered VES into USD, sums both currencies and
// reports change due. Equality counts as sufficient; when the tender falls
// short both change figures are zero and only Sufficient flags the deficit.
// Negative received amounts are clamped to zero rather than rejected, since
// they typically come from half-edited input fields.
func ComputeChange(totalUSD, receivedUSD, receivedVES, rate decimal.Decimal) (Change, error) {
	if rate.Sign() <= 0 {
		return Change{}, ErrInvalidRate
	}
	if receivedUSD.Sign() < 0 {
		receivedUSD = decimal.Zero
	}
	if receivedVES.Sign() < 0 {
		receivedVES = decimal.Zero
	}

	received := receivedUSD.Add(receivedVES.Div(rate))
	sufficient := received.GreaterThanOrEqual(totalUSD)

	change := decimal.Zero
	if sufficient {
		change = received.Sub(totalUSD)
	}

	return Change{
		ChangeUSD:   change,
		ChangeVES:   change.Mul(rate),
		ReceivedUSD: received,
		Sufficient:  sufficient,
	}, nil
}

// Rounded returns a copy of the totals with every figure rounded to two
// fractional digits.
func (t Totals) Rounded() Totals {
	return Totals{
		SubtotalUSD: Round2(t.SubtotalUSD),
		SubtotalVES: Round2(t.SubtotalVES),
		DiscountUSD: Round2(t.DiscountUSD),
		DiscountVES: Round2(t.DiscountVES),
		TaxUSD:      Round2(t.TaxUSD),
		TaxVES:      Round2(t.TaxVES),
		TotalUSD:    Round2(t.TotalUSD),
		TotalVES:    Round2(t.TotalVES),
	}
}

// Rounded returns a copy of the change figures rounded to two fractional digits.
func (c Change) Rounded() Change {
	return Change{
		ChangeUSD:   Round2(c.ChangeUSD),
		ChangeVES:   Round2(c.ChangeVES),
		ReceivedUSD: Round2(c.ReceivedUSD),
		Sufficient:  c.Sufficient,
	}
}
