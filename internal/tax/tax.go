package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"autoparts-orders/internal/models"
)

// Engine computes HT/TTC tax breakdowns. Pure: no I/O, safe for
// concurrent use.
//
// All intermediate arithmetic stays unrounded; amounts are rounded
// half-up to 2 decimals at the final step only. The legacy system the
// figures must agree with never rounds intermediates, so neither do we.
type Engine struct {
	rates        map[models.TaxClass]decimal.Decimal
	standardRate decimal.Decimal
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	// tolerance is the accepted rounding drift on the HT+tax==TTC invariant.
	tolerance = decimal.New(1, -2)
)

// NewEngine returns an engine with the fixed class -> rate table:
// standard=20, reduced=5.5, exempt=0.
func NewEngine() *Engine {
	standard := decimal.NewFromInt(20)
	return &Engine{
		rates: map[models.TaxClass]decimal.Decimal{
			models.TaxClassStandard: standard,
			models.TaxClassReduced:  decimal.NewFromFloat(5.5),
			models.TaxClassExempt:   decimal.Zero,
		},
		standardRate: standard,
	}
}

// RateFor resolves the effective tax rate for a class.
func (e *Engine) RateFor(class models.TaxClass) (decimal.Decimal, error) {
	rate, ok := e.rates[class]
	if !ok {
		return decimal.Zero, &models.ValidationError{
			Field:  "tax_class",
			Reason: fmt.Sprintf("unknown class %q", class),
		}
	}
	return rate, nil
}

func round2(d decimal.Decimal) decimal.Decimal {
	// shopspring Round is half-away-from-zero, which is half-up for the
	// non-negative amounts handled here.
	return d.Round(2)
}

func validateLine(line models.OrderLineInput) error {
	if line.Quantity <= 0 {
		return &models.ValidationError{
			Field:  "quantity",
			Reason: fmt.Sprintf("must be positive, got %d for %s", line.Quantity, line.ProductRef),
		}
	}
	if line.UnitPriceHT.IsNegative() {
		return &models.ValidationError{
			Field:  "unit_price_ht",
			Reason: fmt.Sprintf("must not be negative for %s", line.ProductRef),
		}
	}
	return nil
}

// ComputeLine computes the tax breakdown for a single line. A non-nil
// taxOverride (percent) takes precedence over the class rate.
func (e *Engine) ComputeLine(line models.OrderLineInput, taxOverride *decimal.Decimal) (*models.TaxLineResult, error) {
	if err := validateLine(line); err != nil {
		return nil, err
	}

	var rate decimal.Decimal
	if taxOverride != nil {
		rate = *taxOverride
	} else {
		r, err := e.RateFor(line.TaxClass)
		if err != nil {
			return nil, err
		}
		rate = r
	}

	factor := one.Add(rate.Div(hundred))
	qty := decimal.NewFromInt(int64(line.Quantity))
	totalHT := round2(line.UnitPriceHT.Mul(qty))
	totalTTC := round2(line.UnitPriceHT.Mul(qty).Mul(factor))

	return &models.TaxLineResult{
		ProductRef:   line.ProductRef,
		UnitPriceHT:  line.UnitPriceHT,
		UnitPriceTTC: round2(line.UnitPriceHT.Mul(factor)),
		TaxRate:      rate,
		Quantity:     line.Quantity,
		TotalHT:      totalHT,
		TotalTTC:     totalTTC,
		TotalTax:     totalTTC.Sub(totalHT),
	}, nil
}

// ComputeOrder sums per-line results, taxes shipping at the standard rate
// and allocates the discount proportionally to the goods subtotal.
//
// Totals: totalHT = subtotalHT + shippingHT - discountHT, totalTax follows
// the same shape, totalTTC = totalHT + totalTax.
func (e *Engine) ComputeOrder(lines []models.OrderLineInput, shippingHT, discountHT decimal.Decimal) (*models.OrderTaxSummary, error) {
	if len(lines) == 0 {
		return nil, &models.ValidationError{Field: "lines", Reason: "at least one line is required"}
	}
	if shippingHT.IsNegative() {
		return nil, &models.ValidationError{Field: "shipping_ht", Reason: "must not be negative"}
	}
	if discountHT.IsNegative() {
		return nil, &models.ValidationError{Field: "discount_ht", Reason: "must not be negative"}
	}

	subtotalHT := decimal.Zero
	subtotalTax := decimal.Zero
	results := make([]models.TaxLineResult, 0, len(lines))

	for _, line := range lines {
		if err := validateLine(line); err != nil {
			return nil, err
		}
		rate, err := e.RateFor(line.TaxClass)
		if err != nil {
			return nil, err
		}

		result, err := e.ComputeLine(line, nil)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)

		// Accumulate unrounded; the rounded per-line figures are
		// presentation only.
		lineHT := line.UnitPriceHT.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotalHT = subtotalHT.Add(lineHT)
		subtotalTax = subtotalTax.Add(lineHT.Mul(rate).Div(hundred))
	}

	if discountHT.GreaterThan(subtotalHT.Add(shippingHT)) {
		return nil, &models.ValidationError{
			Field:  "discount_ht",
			Reason: "discount cannot exceed the payable amount",
		}
	}

	shippingTax := shippingHT.Mul(e.standardRate).Div(hundred)

	// Guard: an all-exempt or zero-value order must not divide by zero.
	discountRatio := decimal.Zero
	if subtotalHT.IsPositive() {
		discountRatio = discountHT.Div(subtotalHT)
	}
	discountTax := subtotalTax.Mul(discountRatio)

	totalHT := subtotalHT.Add(shippingHT).Sub(discountHT)
	totalTax := subtotalTax.Add(shippingTax).Sub(discountTax)
	totalTTC := totalHT.Add(totalTax)

	summary := &models.OrderTaxSummary{
		Lines: results,

		SubtotalHT:  round2(subtotalHT),
		SubtotalTTC: round2(subtotalHT.Add(subtotalTax)),
		SubtotalTax: round2(subtotalTax),

		ShippingHT:  round2(shippingHT),
		ShippingTTC: round2(shippingHT.Add(shippingTax)),
		ShippingTax: round2(shippingTax),

		DiscountHT:  round2(discountHT),
		DiscountTTC: round2(discountHT.Add(discountTax)),
		DiscountTax: round2(discountTax),

		TotalHT:  round2(totalHT),
		TotalTTC: round2(totalTTC),
		TotalTax: round2(totalTax),
	}

	if err := checkInvariants(summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// checkInvariants verifies the rounded totals still agree. A failure here
// is a bug in the arithmetic, never a user error.
func checkInvariants(s *models.OrderTaxSummary) error {
	if drift := s.TotalHT.Add(s.TotalTax).Sub(s.TotalTTC).Abs(); drift.GreaterThan(tolerance) {
		return &models.InvariantViolationError{
			Detail: fmt.Sprintf("totalHT %s + totalTax %s != totalTTC %s", s.TotalHT, s.TotalTax, s.TotalTTC),
		}
	}
	expectedHT := s.SubtotalHT.Add(s.ShippingHT).Sub(s.DiscountHT)
	if drift := s.TotalHT.Sub(expectedHT).Abs(); drift.GreaterThan(tolerance) {
		return &models.InvariantViolationError{
			Detail: fmt.Sprintf("totalHT %s != subtotal %s + shipping %s - discount %s", s.TotalHT, s.SubtotalHT, s.ShippingHT, s.DiscountHT),
		}
	}
	return nil
}
