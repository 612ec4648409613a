package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoparts-orders/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(ref string, qty int, price string, class models.TaxClass) models.OrderLineInput {
	return models.OrderLineInput{
		ProductRef:  ref,
		Quantity:    qty,
		UnitPriceHT: d(price),
		TaxClass:    class,
	}
}

func TestRateFor(t *testing.T) {
	e := NewEngine()

	rate, err := e.RateFor(models.TaxClassStandard)
	require.NoError(t, err)
	assert.Equal(t, "20", rate.String())

	rate, err = e.RateFor(models.TaxClassReduced)
	require.NoError(t, err)
	assert.Equal(t, "5.5", rate.String())

	rate, err = e.RateFor(models.TaxClassExempt)
	require.NoError(t, err)
	assert.True(t, rate.IsZero())

	_, err = e.RateFor("luxury")
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "tax_class", validationErr.Field)
}

func TestComputeLine(t *testing.T) {
	e := NewEngine()

	result, err := e.ComputeLine(line("BRK-001", 2, "49.99", models.TaxClassStandard), nil)
	require.NoError(t, err)
	assert.Equal(t, "99.98", result.TotalHT.StringFixed(2))
	assert.Equal(t, "119.98", result.TotalTTC.StringFixed(2))
	assert.Equal(t, "20.00", result.TotalTax.StringFixed(2))
	assert.Equal(t, "59.99", result.UnitPriceTTC.StringFixed(2))
}

func TestComputeLine_Override(t *testing.T) {
	e := NewEngine()
	override := d("10")

	result, err := e.ComputeLine(line("OIL-010", 1, "50.00", models.TaxClassStandard), &override)
	require.NoError(t, err)
	assert.Equal(t, "55.00", result.TotalTTC.StringFixed(2))
	assert.Equal(t, "10", result.TaxRate.String())
}

func TestComputeLine_RejectsBadInput(t *testing.T) {
	e := NewEngine()

	_, err := e.ComputeLine(line("BRK-001", 0, "49.99", models.TaxClassStandard), nil)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "quantity", validationErr.Field)

	_, err = e.ComputeLine(line("BRK-001", 1, "-1.00", models.TaxClassStandard), nil)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "unit_price_ht", validationErr.Field)
}

// Two brake pad sets at 49.99 with 5.99 shipping and a 10.00 discount.
// All amounts stay unrounded until the final totals, so the grand totals
// come out slightly below what rounding each intermediate would give.
func TestComputeOrder_FullBreakdown(t *testing.T) {
	e := NewEngine()

	summary, err := e.ComputeOrder(
		[]models.OrderLineInput{line("BRK-001", 2, "49.99", models.TaxClassStandard)},
		d("5.99"), d("10.00"),
	)
	require.NoError(t, err)

	assert.Equal(t, "99.98", summary.SubtotalHT.StringFixed(2))
	assert.Equal(t, "20.00", summary.SubtotalTax.StringFixed(2))
	assert.Equal(t, "5.99", summary.ShippingHT.StringFixed(2))
	assert.Equal(t, "1.20", summary.ShippingTax.StringFixed(2))
	assert.Equal(t, "10.00", summary.DiscountHT.StringFixed(2))
	assert.Equal(t, "2.00", summary.DiscountTax.StringFixed(2))

	assert.Equal(t, "95.97", summary.TotalHT.StringFixed(2))
	assert.Equal(t, "19.19", summary.TotalTax.StringFixed(2))
	assert.Equal(t, "115.16", summary.TotalTTC.StringFixed(2))
}

func TestComputeOrder_MixedClasses(t *testing.T) {
	e := NewEngine()

	summary, err := e.ComputeOrder(
		[]models.OrderLineInput{
			line("BRK-001", 1, "100.00", models.TaxClassStandard),
			line("MAN-205", 2, "10.00", models.TaxClassReduced),
			line("COR-990", 1, "30.00", models.TaxClassExempt),
		},
		decimal.Zero, decimal.Zero,
	)
	require.NoError(t, err)

	assert.Equal(t, "150.00", summary.SubtotalHT.StringFixed(2))
	assert.Equal(t, "21.10", summary.SubtotalTax.StringFixed(2))
	assert.Equal(t, "150.00", summary.TotalHT.StringFixed(2))
	assert.Equal(t, "21.10", summary.TotalTax.StringFixed(2))
	assert.Equal(t, "171.10", summary.TotalTTC.StringFixed(2))
}

func TestComputeOrder_ExemptOnlyShippingStillTaxed(t *testing.T) {
	e := NewEngine()

	summary, err := e.ComputeOrder(
		[]models.OrderLineInput{line("COR-990", 1, "50.00", models.TaxClassExempt)},
		d("6.90"), decimal.Zero,
	)
	require.NoError(t, err)

	assert.Equal(t, "0.00", summary.SubtotalTax.StringFixed(2))
	assert.Equal(t, "1.38", summary.ShippingTax.StringFixed(2))
	assert.Equal(t, "56.90", summary.TotalHT.StringFixed(2))
	assert.Equal(t, "58.28", summary.TotalTTC.StringFixed(2))
}

// A zero-value order must not divide by zero when allocating the discount.
func TestComputeOrder_ZeroSubtotal(t *testing.T) {
	e := NewEngine()

	summary, err := e.ComputeOrder(
		[]models.OrderLineInput{line("PROMO-000", 1, "0.00", models.TaxClassStandard)},
		d("5.00"), decimal.Zero,
	)
	require.NoError(t, err)

	assert.Equal(t, "0.00", summary.SubtotalHT.StringFixed(2))
	assert.Equal(t, "0.00", summary.DiscountTax.StringFixed(2))
	assert.Equal(t, "5.00", summary.TotalHT.StringFixed(2))
	assert.Equal(t, "6.00", summary.TotalTTC.StringFixed(2))
}

func TestComputeOrder_RejectsBadInput(t *testing.T) {
	e := NewEngine()
	valid := []models.OrderLineInput{line("BRK-001", 1, "10.00", models.TaxClassStandard)}
	var validationErr *models.ValidationError

	_, err := e.ComputeOrder(nil, decimal.Zero, decimal.Zero)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "lines", validationErr.Field)

	_, err = e.ComputeOrder(valid, d("-1.00"), decimal.Zero)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "shipping_ht", validationErr.Field)

	_, err = e.ComputeOrder(valid, decimal.Zero, d("-1.00"))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "discount_ht", validationErr.Field)

	_, err = e.ComputeOrder(valid, d("5.00"), d("15.01"))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "discount_ht", validationErr.Field)

	_, err = e.ComputeOrder([]models.OrderLineInput{line("BRK-001", 1, "10.00", "luxury")}, decimal.Zero, decimal.Zero)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "tax_class", validationErr.Field)
}

// The discount acts linearly: recomputing the same order without it and
// subtracting the discount-derived amounts must reproduce the discounted
// totals.
func TestComputeOrder_DiscountLinearity(t *testing.T) {
	e := NewEngine()

	cases := []struct {
		name     string
		lines    []models.OrderLineInput
		shipping string
		discount string
	}{
		{"all standard", []models.OrderLineInput{line("BRK-001", 2, "49.99", models.TaxClassStandard)}, "5.99", "10.00"},
		{"mixed classes", []models.OrderLineInput{
			line("BRK-001", 1, "100.00", models.TaxClassStandard),
			line("MAN-205", 2, "10.00", models.TaxClassReduced),
		}, "0.00", "12.00"},
		{"with exempt", []models.OrderLineInput{
			line("COR-990", 3, "15.00", models.TaxClassExempt),
			line("OIL-010", 1, "25.50", models.TaxClassStandard),
		}, "6.90", "7.77"},
	}

	tol := d("0.01")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			discounted, err := e.ComputeOrder(tc.lines, d(tc.shipping), d(tc.discount))
			require.NoError(t, err)

			base, err := e.ComputeOrder(tc.lines, d(tc.shipping), decimal.Zero)
			require.NoError(t, err)

			htDiff := base.TotalHT.Sub(discounted.TotalHT)
			assert.True(t, htDiff.Sub(discounted.DiscountHT).Abs().LessThanOrEqual(tol),
				"HT drop %s should equal discountHT %s", htDiff, discounted.DiscountHT)

			taxDiff := base.TotalTax.Sub(discounted.TotalTax)
			assert.True(t, taxDiff.Sub(discounted.DiscountTax).Abs().LessThanOrEqual(tol),
				"tax drop %s should equal discountTax %s", taxDiff, discounted.DiscountTax)

			ttcDiff := base.TotalTTC.Sub(discounted.TotalTTC)
			assert.True(t, ttcDiff.Sub(discounted.DiscountTTC).Abs().LessThanOrEqual(tol),
				"TTC drop %s should equal discountTTC %s", ttcDiff, discounted.DiscountTTC)
		})
	}
}

func TestComputeOrder_InvariantsHold(t *testing.T) {
	e := NewEngine()

	cases := []struct {
		name     string
		lines    []models.OrderLineInput
		shipping string
		discount string
	}{
		{"plain", []models.OrderLineInput{line("A", 3, "19.99", models.TaxClassStandard)}, "0.00", "0.00"},
		{"with shipping", []models.OrderLineInput{line("A", 1, "7.77", models.TaxClassReduced)}, "12.90", "0.00"},
		{"with discount", []models.OrderLineInput{line("A", 5, "13.13", models.TaxClassStandard)}, "6.90", "9.99"},
		{"mixed", []models.OrderLineInput{
			line("A", 2, "33.33", models.TaxClassStandard),
			line("B", 1, "0.01", models.TaxClassReduced),
			line("C", 7, "2.50", models.TaxClassExempt),
		}, "24.90", "5.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary, err := e.ComputeOrder(tc.lines, d(tc.shipping), d(tc.discount))
			require.NoError(t, err)

			drift := summary.TotalHT.Add(summary.TotalTax).Sub(summary.TotalTTC).Abs()
			assert.True(t, drift.LessThanOrEqual(d("0.01")),
				"totalHT + totalTax should equal totalTTC, drift %s", drift)

			expectedHT := summary.SubtotalHT.Add(summary.ShippingHT).Sub(summary.DiscountHT)
			assert.True(t, summary.TotalHT.Sub(expectedHT).Abs().LessThanOrEqual(d("0.01")))
		})
	}
}
