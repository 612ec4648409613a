// Package status translates the unified order status to and from each
// store's native representation. The tables are fixed; codes are never
// inferred.
package status

import (
	"fmt"

	"autoparts-orders/internal/models"
)

// toModern maps unified statuses to the modern store's lowercase strings.
var toModern = map[models.OrderStatus]string{
	models.StatusPending:    "pending",
	models.StatusConfirmed:  "confirmed",
	models.StatusProcessing: "processing",
	models.StatusShipped:    "shipped",
	models.StatusDelivered:  "delivered",
	models.StatusCancelled:  "cancelled",
	models.StatusRefunded:   "refunded",
}

// toLegacy maps unified statuses to the legacy store's two-digit codes.
// 9x codes are the historical "exception" range.
var toLegacy = map[models.OrderStatus]string{
	models.StatusPending:    "01",
	models.StatusConfirmed:  "02",
	models.StatusProcessing: "03",
	models.StatusShipped:    "04",
	models.StatusDelivered:  "05",
	models.StatusCancelled:  "90",
	models.StatusRefunded:   "91",
}

// Translator converts between the unified enum and store-native codes in
// both directions.
type Translator struct {
	fromModern map[string]models.OrderStatus
	fromLegacy map[string]models.OrderStatus
}

// NewTranslator builds the reverse tables from the fixed forward ones.
func NewTranslator() *Translator {
	t := &Translator{
		fromModern: make(map[string]models.OrderStatus, len(toModern)),
		fromLegacy: make(map[string]models.OrderStatus, len(toLegacy)),
	}
	for unified, native := range toModern {
		t.fromModern[native] = unified
	}
	for unified, native := range toLegacy {
		t.fromLegacy[native] = unified
	}
	return t
}

// ToModern returns the modern store's native status string.
func (t *Translator) ToModern(s models.OrderStatus) (string, error) {
	native, ok := toModern[s]
	if !ok {
		return "", fmt.Errorf("no modern status mapping for %q", s)
	}
	return native, nil
}

// FromModern translates a modern native status back to the unified enum.
func (t *Translator) FromModern(native string) (models.OrderStatus, error) {
	s, ok := t.fromModern[native]
	if !ok {
		return "", fmt.Errorf("unknown modern status %q", native)
	}
	return s, nil
}

// ToLegacy returns the legacy store's native status code.
func (t *Translator) ToLegacy(s models.OrderStatus) (string, error) {
	native, ok := toLegacy[s]
	if !ok {
		return "", fmt.Errorf("no legacy status mapping for %q", s)
	}
	return native, nil
}

// FromLegacy translates a legacy native code back to the unified enum.
func (t *Translator) FromLegacy(native string) (models.OrderStatus, error) {
	s, ok := t.fromLegacy[native]
	if !ok {
		return "", fmt.Errorf("unknown legacy status code %q", native)
	}
	return s, nil
}
