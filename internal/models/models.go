package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxClass classifies a product line for VAT purposes.
type TaxClass string

const (
	TaxClassStandard TaxClass = "standard"
	TaxClassReduced  TaxClass = "reduced"
	TaxClassExempt   TaxClass = "exempt"
)

// OrderLineInput is a single order line as supplied by the caller.
// Never mutated after submission.
type OrderLineInput struct {
	ProductRef  string          `json:"product_ref"`
	Quantity    int             `json:"quantity"`
	UnitPriceHT decimal.Decimal `json:"unit_price_ht"`
	TaxClass    TaxClass        `json:"tax_class"`
}

// TaxLineResult is the per-line tax breakdown. Derived, never mutated.
type TaxLineResult struct {
	ProductRef   string          `json:"product_ref"`
	UnitPriceHT  decimal.Decimal `json:"unit_price_ht"`
	UnitPriceTTC decimal.Decimal `json:"unit_price_ttc"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Quantity     int             `json:"quantity"`
	TotalHT      decimal.Decimal `json:"total_ht"`
	TotalTTC     decimal.Decimal `json:"total_ttc"`
	TotalTax     decimal.Decimal `json:"total_tax"`
}

// OrderTaxSummary aggregates the full order breakdown: goods subtotal,
// shipping, proportionally allocated discount and grand totals.
type OrderTaxSummary struct {
	Lines []TaxLineResult `json:"lines"`

	SubtotalHT  decimal.Decimal `json:"subtotal_ht"`
	SubtotalTTC decimal.Decimal `json:"subtotal_ttc"`
	SubtotalTax decimal.Decimal `json:"subtotal_tax"`

	ShippingHT  decimal.Decimal `json:"shipping_ht"`
	ShippingTTC decimal.Decimal `json:"shipping_ttc"`
	ShippingTax decimal.Decimal `json:"shipping_tax"`

	DiscountHT  decimal.Decimal `json:"discount_ht"`
	DiscountTTC decimal.Decimal `json:"discount_ttc"`
	DiscountTax decimal.Decimal `json:"discount_tax"`

	TotalHT  decimal.Decimal `json:"total_ht"`
	TotalTTC decimal.Decimal `json:"total_ttc"`
	TotalTax decimal.Decimal `json:"total_tax"`
}

// Destination identifies where an order ships to.
type Destination struct {
	Country    string `json:"country"`
	PostalCode string `json:"postal_code,omitempty"`
}

// DeliveryZone is a static reference-table entry. Empty matcher slices
// match anything, which is how the international catch-all is expressed.
type DeliveryZone struct {
	ID               string
	Countries        []string
	PostalPrefixes   []string
	BaseRate         decimal.Decimal
	WeightMultiplier decimal.Decimal
	EstimatedDays    int
}

// ServiceLevel is an optional shipping service override.
type ServiceLevel string

const (
	ServiceLevelStandard ServiceLevel = "standard"
	ServiceLevelEconomy  ServiceLevel = "economy"
	ServiceLevelExpress  ServiceLevel = "express"
)

// ShippingQuote is the result of pricing shipping for an order.
// ComputedFee is kept even when the free-shipping rule forces FinalFee to
// zero; reporting needs it for margin analysis.
type ShippingQuote struct {
	ZoneID          string          `json:"zone_id"`
	BaseRate        decimal.Decimal `json:"base_rate"`
	WeightSurcharge decimal.Decimal `json:"weight_surcharge"`
	ComputedFee     decimal.Decimal `json:"computed_fee"`
	FinalFee        decimal.Decimal `json:"final_fee"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
	FreeShipping    bool            `json:"free_shipping"`
	EstimatedDays   int             `json:"estimated_days"`
	ServiceLevel    ServiceLevel    `json:"service_level"`
}

// WriteStatus tracks the outcome of a single store write.
type WriteStatus string

const (
	WriteStatusPending WriteStatus = "pending"
	WriteStatusOK      WriteStatus = "ok"
	WriteStatusFailed  WriteStatus = "failed"
)

// StoreLinkRecord is the reconciliation ledger entry tying the two store
// records to one unified id. Append-only: rows are never deleted, a zero
// store id means that store has not acknowledged a write yet.
type StoreLinkRecord struct {
	UnifiedID         string      `db:"unified_id" json:"unified_id"`
	ModernStoreID     int64       `db:"modern_store_id" json:"modern_store_id"`
	LegacyStoreID     int64       `db:"legacy_store_id" json:"legacy_store_id"`
	ModernWriteStatus WriteStatus `db:"modern_write_status" json:"modern_write_status"`
	LegacyWriteStatus WriteStatus `db:"legacy_write_status" json:"legacy_write_status"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

// UnifiedOrder is the canonical in-flight order representation, independent
// of either backing store's schema. UnifiedID is generated once and is the
// join key between the two store records.
type UnifiedOrder struct {
	UnifiedID     string           `json:"unified_id"`
	CustomerID    int64            `json:"customer_id"`
	Lines         []OrderLineInput `json:"lines"`
	TaxSummary    *OrderTaxSummary `json:"tax_summary,omitempty"`
	ShippingQuote *ShippingQuote   `json:"shipping_quote,omitempty"`
	Status        OrderStatus      `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ModernOrderRecord is a row in the modern relational store.
type ModernOrderRecord struct {
	ID                 int64           `db:"id"`
	UnifiedID          string          `db:"unified_id"`
	CustomerID         int64           `db:"customer_id"`
	NativeStatus       string          `db:"status"`
	TotalHT            decimal.Decimal `db:"total_ht"`
	TotalTTC           decimal.Decimal `db:"total_ttc"`
	TotalTax           decimal.Decimal `db:"total_tax"`
	ShippingFee        decimal.Decimal `db:"shipping_fee"`
	IdempotencyKey     string          `db:"idempotency_key"`
	PayloadFingerprint string          `db:"payload_fingerprint"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

// ModernOrderLine is a line row in the modern relational store.
type ModernOrderLine struct {
	ID          int64           `db:"id"`
	OrderID     int64           `db:"order_id"`
	ProductRef  string          `db:"product_ref"`
	Quantity    int             `db:"quantity"`
	UnitPriceHT decimal.Decimal `db:"unit_price_ht"`
	TaxClass    TaxClass        `db:"tax_class"`
}

// LegacyOrderRow mirrors the flat legacy store schema. Amounts are fixed
// two-decimal strings, lines are packed into a single field, and the xref
// columns carry the back-reference to the unified/modern records.
type LegacyOrderRow struct {
	OrdNo       int64     `db:"ordno"`
	XrefUnified string    `db:"xref_unified"`
	XrefModern  int64     `db:"xref_modern"`
	CustNo      int64     `db:"custno"`
	StatCd      string    `db:"statcd"`
	AmtHT       string    `db:"amt_ht"`
	AmtTTC      string    `db:"amt_ttc"`
	AmtTax      string    `db:"amt_tax"`
	ShipFee     string    `db:"shipfee"`
	LineCt      int       `db:"linect"`
	LineData    string    `db:"linedata"`
	CrtDt       time.Time `db:"crtdt"`
}
