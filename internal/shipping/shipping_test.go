package shipping

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoparts-orders/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quote(t *testing.T, req QuoteRequest) *models.ShippingQuote {
	t.Helper()
	q, err := NewEngine(NewStaticResolver()).Quote(context.Background(), req)
	require.NoError(t, err)
	return q
}

func TestResolve_ZoneTable(t *testing.T) {
	resolver := NewStaticResolver()
	ctx := context.Background()

	cases := []struct {
		country string
		postal  string
		zoneID  string
	}{
		{"FR", "75001", "fr-metro"},
		{"fr", "75001", "fr-metro"},
		{"MC", "98000", "fr-metro"},
		{"FR", "97400", "fr-domtom"},
		{"FR", "98800", "fr-domtom"},
		{"DE", "10115", "eu-west"},
		{"ES", "", "eu-west"},
		{"PL", "00-001", "eu-east"},
		{"US", "90210", "international"},
		{"JP", "", "international"},
	}

	for _, tc := range cases {
		zone, err := resolver.Resolve(ctx, models.Destination{Country: tc.country, PostalCode: tc.postal})
		require.NoError(t, err)
		assert.Equal(t, tc.zoneID, zone.ID, "country=%s postal=%s", tc.country, tc.postal)
	}
}

func TestQuote_NoSurchargeUpToIncludedWeight(t *testing.T) {
	for _, weight := range []float64{0, 4, 5} {
		q := quote(t, QuoteRequest{
			WeightKg:    weight,
			Destination: models.Destination{Country: "FR", PostalCode: "69001"},
		})
		assert.True(t, q.WeightSurcharge.IsZero(), "weight %v", weight)
		assert.Equal(t, "6.90", q.FinalFee.StringFixed(2))
	}
}

// Every started kilogram above the included 5kg bills one increment:
// 7.2kg is 2.2kg over, so three increments.
func TestQuote_WeightSurcharge(t *testing.T) {
	q := quote(t, QuoteRequest{
		WeightKg:    7.2,
		Destination: models.Destination{Country: "FR", PostalCode: "69001"},
	})
	assert.Equal(t, "5.70", q.WeightSurcharge.StringFixed(2))
	assert.Equal(t, "12.60", q.FinalFee.StringFixed(2))

	q = quote(t, QuoteRequest{
		WeightKg:    5.1,
		Destination: models.Destination{Country: "US"},
	})
	assert.Equal(t, "5.90", q.WeightSurcharge.StringFixed(2))
	assert.Equal(t, "35.80", q.FinalFee.StringFixed(2))
}

func TestQuote_FreeShippingThresholdInclusive(t *testing.T) {
	req := QuoteRequest{
		WeightKg:              2,
		Destination:           models.Destination{Country: "FR", PostalCode: "69001"},
		FreeShippingThreshold: d("120.00"),
	}

	req.OrderAmountHT = d("119.99")
	q := quote(t, req)
	assert.False(t, q.FreeShipping)
	assert.Equal(t, "6.90", q.FinalFee.StringFixed(2))
	assert.True(t, q.DiscountApplied.IsZero())

	req.OrderAmountHT = d("120.00")
	q = quote(t, req)
	assert.True(t, q.FreeShipping)
	assert.True(t, q.FinalFee.IsZero())
	assert.Equal(t, "6.90", q.DiscountApplied.StringFixed(2))
	assert.Equal(t, "6.90", q.ComputedFee.StringFixed(2))
}

func TestQuote_ZeroThresholdDisablesFreeShipping(t *testing.T) {
	q := quote(t, QuoteRequest{
		WeightKg:              2,
		Destination:           models.Destination{Country: "FR", PostalCode: "69001"},
		OrderAmountHT:         d("9999.00"),
		FreeShippingThreshold: decimal.Zero,
	})
	assert.False(t, q.FreeShipping)
	assert.Equal(t, "6.90", q.FinalFee.StringFixed(2))
}

func TestQuote_ServiceLevels(t *testing.T) {
	base := QuoteRequest{
		WeightKg:    2,
		Destination: models.Destination{Country: "FR", PostalCode: "69001"},
	}

	q := quote(t, base)
	assert.Equal(t, models.ServiceLevelStandard, q.ServiceLevel)
	assert.Equal(t, 2, q.EstimatedDays)

	base.ServiceLevel = models.ServiceLevelEconomy
	assert.Equal(t, 4, quote(t, base).EstimatedDays)

	base.ServiceLevel = models.ServiceLevelExpress
	assert.Equal(t, 1, quote(t, base).EstimatedDays)

	// Express halves and floors at one day.
	q = quote(t, QuoteRequest{
		WeightKg:     2,
		Destination:  models.Destination{Country: "US"},
		ServiceLevel: models.ServiceLevelExpress,
	})
	assert.Equal(t, 6, q.EstimatedDays)
}

func TestQuote_RejectsBadInput(t *testing.T) {
	e := NewEngine(NewStaticResolver())
	ctx := context.Background()

	_, err := e.Quote(ctx, QuoteRequest{WeightKg: 1, Destination: models.Destination{Country: "  "}})
	assert.ErrorIs(t, err, models.ErrInvalidDestination)

	_, err = e.Quote(ctx, QuoteRequest{WeightKg: -0.1, Destination: models.Destination{Country: "FR"}})
	assert.ErrorIs(t, err, models.ErrInvalidWeight)

	_, err = e.Quote(ctx, QuoteRequest{
		WeightKg:     1,
		Destination:  models.Destination{Country: "FR"},
		ServiceLevel: "drone",
	})
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "service_level", validationErr.Field)
}
