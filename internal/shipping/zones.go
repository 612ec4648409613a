package shipping

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"autoparts-orders/internal/models"
)

// ZoneResolver resolves the delivery zone for a destination. The static
// table below is the shipped implementation; a remote rate service can be
// dropped in behind the same interface.
type ZoneResolver interface {
	Resolve(ctx context.Context, dest models.Destination) (*models.DeliveryZone, error)
}

// DefaultZones returns the ordered zone table. Matching is first-wins, so
// the overseas-departments entry must precede metropolitan France and the
// international catch-all must come last. The catch-all has no matchers
// and therefore always resolves.
func DefaultZones() []models.DeliveryZone {
	return []models.DeliveryZone{
		{
			ID:               "fr-domtom",
			Countries:        []string{"FR"},
			PostalPrefixes:   []string{"97", "98"},
			BaseRate:         decimal.NewFromFloat(24.90),
			WeightMultiplier: decimal.NewFromFloat(4.50),
			EstimatedDays:    8,
		},
		{
			ID:               "fr-metro",
			Countries:        []string{"FR", "MC"},
			BaseRate:         decimal.NewFromFloat(6.90),
			WeightMultiplier: decimal.NewFromFloat(1.90),
			EstimatedDays:    2,
		},
		{
			ID:               "eu-west",
			Countries:        []string{"BE", "LU", "NL", "DE", "AT", "IT", "ES", "PT", "IE"},
			BaseRate:         decimal.NewFromFloat(12.90),
			WeightMultiplier: decimal.NewFromFloat(2.50),
			EstimatedDays:    4,
		},
		{
			ID:               "eu-east",
			Countries:        []string{"PL", "CZ", "SK", "HU", "SI", "HR", "RO", "BG", "EE", "LV", "LT"},
			BaseRate:         decimal.NewFromFloat(15.90),
			WeightMultiplier: decimal.NewFromFloat(2.90),
			EstimatedDays:    6,
		},
		{
			ID:               "international",
			BaseRate:         decimal.NewFromFloat(29.90),
			WeightMultiplier: decimal.NewFromFloat(5.90),
			EstimatedDays:    12,
		},
	}
}

// StaticResolver matches destinations against an ordered in-memory zone
// table. Zones are static configuration, never mutated at runtime.
type StaticResolver struct {
	zones []models.DeliveryZone
}

// NewStaticResolver builds a resolver over the default zone table.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{zones: DefaultZones()}
}

// Resolve returns the first zone whose matchers accept the destination.
// The trailing catch-all guarantees a result for any valid destination.
func (r *StaticResolver) Resolve(_ context.Context, dest models.Destination) (*models.DeliveryZone, error) {
	country := strings.ToUpper(strings.TrimSpace(dest.Country))
	postal := strings.TrimSpace(dest.PostalCode)

	for i := range r.zones {
		if matches(&r.zones[i], country, postal) {
			zone := r.zones[i]
			return &zone, nil
		}
	}

	// Unreachable as long as the table ends with the catch-all.
	zone := r.zones[len(r.zones)-1]
	return &zone, nil
}

func matches(zone *models.DeliveryZone, country, postal string) bool {
	if len(zone.Countries) > 0 {
		found := false
		for _, c := range zone.Countries {
			if c == country {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(zone.PostalPrefixes) > 0 {
		for _, prefix := range zone.PostalPrefixes {
			if strings.HasPrefix(postal, prefix) {
				return true
			}
		}
		return false
	}

	return true
}
