package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func taxRate16() decimal.Decimal {
	return TaxRateFromBps(1600)
}

func TestComputeTotalsSingleLine(t *testing.T) {
	lines := []Line{{UnitPriceUSD: dec("2.50"), Qty: 3}}
	totals, err := ComputeTotals(lines, decimal.Zero, dec("36.50"), taxRate16())
	require.NoError(t, err)

	require.True(t, totals.SubtotalUSD.Equal(dec("7.50")), "subtotal %s", totals.SubtotalUSD)
	require.True(t, totals.TaxUSD.Equal(dec("1.20")), "tax %s", totals.TaxUSD)
	require.True(t, totals.TotalUSD.Equal(dec("8.70")), "total %s", totals.TotalUSD)
	require.True(t, totals.TotalVES.Equal(dec("317.55")), "total ves %s", totals.TotalVES)
}

func TestComputeTotalsWithDiscount(t *testing.T) {
	lines := []Line{{UnitPriceUSD: dec("2.50"), Qty: 3}}
	totals, err := ComputeTotals(lines, dec("1.00"), dec("36.50"), taxRate16())
	require.NoError(t, err)

	require.True(t, totals.DiscountUSD.Equal(dec("1.00")))
	require.True(t, totals.TaxUSD.Equal(dec("1.04")), "tax %s", totals.TaxUSD)
	require.True(t, totals.TotalUSD.Equal(dec("7.54")), "total %s", totals.TotalUSD)
}

func TestComputeTotalsDiscountClamped(t *testing.T) {
	lines := []Line{{UnitPriceUSD: dec("2.50"), Qty: 3}}

	totals, err := ComputeTotals(lines, dec("50"), dec("36.50"), taxRate16())
	require.NoError(t, err)
	require.True(t, totals.DiscountUSD.Equal(dec("7.50")), "discount %s", totals.DiscountUSD)
	require.True(t, totals.TotalUSD.IsZero(), "total %s", totals.TotalUSD)

	totals, err = ComputeTotals(lines, dec("-3"), dec("36.50"), taxRate16())
	require.NoError(t, err)
	require.True(t, totals.DiscountUSD.IsZero())
	require.True(t, totals.TotalUSD.Equal(dec("8.70")))
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	totals, err := ComputeTotals(nil, decimal.Zero, dec("36.50"), taxRate16())
	require.NoError(t, err)
	require.True(t, totals.SubtotalUSD.IsZero())
	require.True(t, totals.TotalUSD.IsZero())
	require.True(t, totals.TotalVES.IsZero())
}

func TestComputeTotalsLineOrderIrrelevant(t *testing.T) {
	a := []Line{
		{UnitPriceUSD: dec("1.25"), Qty: 2},
		{UnitPriceUSD: dec("0.99"), Qty: 5},
		{UnitPriceUSD: dec("12.00"), Qty: 1},
	}
	b := []Line{a[2], a[0], a[1]}

	ta, err := ComputeTotals(a, dec("2.00"), dec("36.50"), taxRate16())
	require.NoError(t, err)
	tb, err := ComputeTotals(b, dec("2.00"), dec("36.50"), taxRate16())
	require.NoError(t, err)

	require.True(t, ta.TotalUSD.Equal(tb.TotalUSD))
	require.True(t, ta.TotalVES.Equal(tb.TotalVES))
}

func TestComputeTotalsIdempotent(t *testing.T) {
	lines := []Line{{UnitPriceUSD: dec("3.33"), Qty: 7}}
	first, err := ComputeTotals(lines, dec("0.50"), dec("41.07"), taxRate16())
	require.NoError(t, err)
	second, err := ComputeTotals(lines, dec("0.50"), dec("41.07"), taxRate16())
	require.NoError(t, err)
	require.True(t, first.TotalUSD.Equal(second.TotalUSD))
	require.True(t, first.TaxVES.Equal(second.TaxVES))
}

func TestComputeTotalsVESRoundTrip(t *testing.T) {
	lines := []Line{{UnitPriceUSD: dec("1.07"), Qty: 13}}
	rate := dec("36.47")
	totals, err := ComputeTotals(lines, dec("0.33"), rate, taxRate16())
	require.NoError(t, err)

	back := totals.TotalVES.Div(rate)
	diff := back.Sub(totals.TotalUSD).Abs()
	require.True(t, diff.LessThan(dec("0.01")), "round trip drift %s", diff)
}

func TestComputeTotalsInvalidRate(t *testing.T) {
	lines := []Line{{UnitPriceUSD: dec("1.00"), Qty: 1}}
	_, err := ComputeTotals(lines, decimal.Zero, decimal.Zero, taxRate16())
	require.ErrorIs(t, err, ErrInvalidRate)
	_, err = ComputeTotals(lines, decimal.Zero, dec("-36.50"), taxRate16())
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestComputeTotalsInvalidLine(t *testing.T) {
	_, err := ComputeTotals([]Line{{UnitPriceUSD: dec("-0.01"), Qty: 1}}, decimal.Zero, dec("36.50"), taxRate16())
	require.ErrorIs(t, err, ErrInvalidLine)
	_, err = ComputeTotals([]Line{{UnitPriceUSD: dec("1.00"), Qty: 0}}, decimal.Zero, dec("36.50"), taxRate16())
	require.ErrorIs(t, err, ErrInvalidLine)
	_, err = ComputeTotals([]Line{{UnitPriceUSD: dec("1.00"), Qty: -2}}, decimal.Zero, dec("36.50"), taxRate16())
	require.ErrorIs(t, err, ErrInvalidLine)
}

func TestComputeChangeUSDOnly(t *testing.T) {
	change, err := ComputeChange(dec("8.70"), dec("10.00"), decimal.Zero, dec("36.50"))
	require.NoError(t, err)
	require.True(t, change.Sufficient)
	require.True(t, change.ChangeUSD.Equal(dec("1.30")), "change %s", change.ChangeUSD)
	require.True(t, change.ChangeVES.Equal(dec("47.45")), "change ves %s", change.ChangeVES)
}

func TestComputeChangeMixedInsufficient(t *testing.T) {
	change, err := ComputeChange(dec("8.70"), dec("5.00"), dec("100.00"), dec("36.50"))
	require.NoError(t, err)
	require.False(t, change.Sufficient)
	require.True(t, change.ChangeUSD.IsZero())
	require.True(t, change.ChangeVES.IsZero())

	expected := dec("5.00").Add(dec("100.00").Div(dec("36.50")))
	require.True(t, change.ReceivedUSD.Equal(expected), "received %s", change.ReceivedUSD)
}

func TestComputeChangeExactTender(t *testing.T) {
	change, err := ComputeChange(dec("8.70"), dec("8.70"), decimal.Zero, dec("36.50"))
	require.NoError(t, err)
	require.True(t, change.Sufficient)
	require.True(t, change.ChangeUSD.IsZero())
	require.True(t, change.ChangeVES.IsZero())
}

func TestComputeChangeClampsNegativeReceived(t *testing.T) {
	change, err := ComputeChange(dec("8.70"), dec("-4.00"), dec("-10.00"), dec("36.50"))
	require.NoError(t, err)
	require.False(t, change.Sufficient)
	require.True(t, change.ReceivedUSD.IsZero())
	require.True(t, change.ChangeUSD.IsZero())
}

func TestComputeChangeInvalidRate(t *testing.T) {
	_, err := ComputeChange(dec("8.70"), dec("10.00"), decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestComputeChangeNeverNegative(t *testing.T) {
	cases := []struct {
		total, usd, ves string
	}{
		{"8.70", "0", "0"},
		{"8.70", "8.69", "0"},
		{"100.00", "0", "1"},
		{"0", "0", "0"},
	}
	for _, tc := range cases {
		change, err := ComputeChange(dec(tc.total), dec(tc.usd), dec(tc.ves), dec("36.50"))
		require.NoError(t, err)
		require.False(t, change.ChangeUSD.IsNegative(), "total=%s usd=%s ves=%s", tc.total, tc.usd, tc.ves)
		require.False(t, change.ChangeVES.IsNegative())
	}
}

func TestRoundedTotals(t *testing.T) {
	lines := []Line{{UnitPriceUSD: dec("0.333"), Qty: 3}}
	totals, err := ComputeTotals(lines, decimal.Zero, dec("36.50"), taxRate16())
	require.NoError(t, err)

	rounded := totals.Rounded()
	require.Equal(t, "1.00", rounded.SubtotalUSD.StringFixed(2))
	require.Equal(t, int32(-2), rounded.TotalVES.Exponent())
}

func TestParseMethod(t *testing.T) {
	for _, raw := range []string{"cash_usd", "CASH_VES", " card ", "transfer", "mobile_payment", "mixed"} {
		_, err := ParseMethod(raw)
		require.NoError(t, err, raw)
	}
	_, err := ParseMethod("barter")
	require.ErrorIs(t, err, ErrInvalidMethod)
}

func TestMethodRequiresCash(t *testing.T) {
	require.True(t, MethodCashUSD.RequiresCash())
	require.True(t, MethodCashVES.RequiresCash())
	require.True(t, MethodMixed.RequiresCash())
	require.False(t, MethodCard.RequiresCash())
	require.False(t, MethodTransfer.RequiresCash())
	require.False(t, MethodMobilePayment.RequiresCash())
}
