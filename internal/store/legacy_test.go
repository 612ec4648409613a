package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoparts-orders/internal/models"
)

func TestPackLineData(t *testing.T) {
	lines := []models.OrderLineInput{
		{ProductRef: "BRK-001", Quantity: 2, UnitPriceHT: decimal.RequireFromString("49.99")},
		{ProductRef: "OIL-010", Quantity: 1, UnitPriceHT: decimal.RequireFromString("8.5")},
	}
	assert.Equal(t, "BRK-001*2*49.99|OIL-010*1*8.50", PackLineData(lines))
}

func TestPackLineData_Empty(t *testing.T) {
	assert.Equal(t, "", PackLineData(nil))
}

func TestMapToLegacyRow(t *testing.T) {
	order := &models.UnifiedOrder{
		UnifiedID:  "0190a2b4-0000-7000-8000-000000000001",
		CustomerID: 42,
		Lines: []models.OrderLineInput{
			{ProductRef: "BRK-001", Quantity: 2, UnitPriceHT: decimal.RequireFromString("49.99")},
		},
		TaxSummary: &models.OrderTaxSummary{
			TotalHT:    decimal.RequireFromString("95.97"),
			TotalTTC:   decimal.RequireFromString("115.16"),
			TotalTax:   decimal.RequireFromString("19.19"),
			ShippingHT: decimal.RequireFromString("5.99"),
		},
		Status: models.StatusPending,
	}

	row := MapToLegacyRow(order, 17, "01")

	assert.Equal(t, order.UnifiedID, row.XrefUnified)
	assert.Equal(t, int64(17), row.XrefModern)
	assert.Equal(t, int64(42), row.CustNo)
	assert.Equal(t, "01", row.StatCd)
	assert.Equal(t, "95.97", row.AmtHT)
	assert.Equal(t, "115.16", row.AmtTTC)
	assert.Equal(t, "19.19", row.AmtTax)
	assert.Equal(t, "5.99", row.ShipFee)
	assert.Equal(t, 1, row.LineCt)
	assert.Equal(t, "BRK-001*2*49.99", row.LineData)
}

func TestMapToLegacyRow_NoSummary(t *testing.T) {
	order := &models.UnifiedOrder{
		UnifiedID:  "0190a2b4-0000-7000-8000-000000000002",
		CustomerID: 7,
	}

	row := MapToLegacyRow(order, 3, "02")
	require.NotNil(t, row)
	assert.Empty(t, row.AmtHT)
	assert.Zero(t, row.LineCt)
}
