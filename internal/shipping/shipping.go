package shipping

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"autoparts-orders/internal/models"
)

// includedWeightKg is covered by the zone base rate; every started
// kilogram above it is billed at the zone multiplier.
const includedWeightKg = 5.0

// QuoteRequest carries everything needed to price shipping for an order.
type QuoteRequest struct {
	WeightKg              float64
	Destination           models.Destination
	OrderAmountHT         decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ServiceLevel          models.ServiceLevel
}

// Engine prices shipping from weight, zone and threshold rules.
type Engine struct {
	resolver ZoneResolver
}

// NewEngine creates a shipping engine over the given zone resolver.
func NewEngine(resolver ZoneResolver) *Engine {
	return &Engine{resolver: resolver}
}

// Quote resolves the delivery zone and computes the fee.
//
// The free-shipping threshold is inclusive: orderAmountHT == threshold
// already forces the final fee to zero. The computed fee is then reported
// as DiscountApplied rather than discarded. A zero threshold disables the
// rule.
func (e *Engine) Quote(ctx context.Context, req QuoteRequest) (*models.ShippingQuote, error) {
	if strings.TrimSpace(req.Destination.Country) == "" {
		return nil, models.ErrInvalidDestination
	}
	if req.WeightKg < 0 {
		return nil, models.ErrInvalidWeight
	}
	level, err := normalizeServiceLevel(req.ServiceLevel)
	if err != nil {
		return nil, err
	}

	zone, err := e.resolver.Resolve(ctx, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("resolve delivery zone: %w", err)
	}

	surcharge := decimal.Zero
	if extra := req.WeightKg - includedWeightKg; extra > 0 {
		increments := int64(math.Ceil(extra))
		surcharge = zone.WeightMultiplier.Mul(decimal.NewFromInt(increments))
	}

	computed := zone.BaseRate.Add(surcharge)
	final := computed
	discountApplied := decimal.Zero
	free := false

	if req.FreeShippingThreshold.IsPositive() && req.OrderAmountHT.GreaterThanOrEqual(req.FreeShippingThreshold) {
		final = decimal.Zero
		discountApplied = computed
		free = true
	}

	days := zone.EstimatedDays
	switch level {
	case models.ServiceLevelEconomy:
		days += 2
	case models.ServiceLevelExpress:
		days /= 2
		if days < 1 {
			days = 1
		}
	}

	return &models.ShippingQuote{
		ZoneID:          zone.ID,
		BaseRate:        zone.BaseRate,
		WeightSurcharge: surcharge,
		ComputedFee:     computed,
		FinalFee:        final,
		DiscountApplied: discountApplied,
		FreeShipping:    free,
		EstimatedDays:   days,
		ServiceLevel:    level,
	}, nil
}

func normalizeServiceLevel(level models.ServiceLevel) (models.ServiceLevel, error) {
	switch level {
	case "", models.ServiceLevelStandard:
		return models.ServiceLevelStandard, nil
	case models.ServiceLevelEconomy, models.ServiceLevelExpress:
		return level, nil
	default:
		return "", &models.ValidationError{
			Field:  "service_level",
			Reason: fmt.Sprintf("unknown level %q", level),
		}
	}
}
