package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoparts-orders/internal/models"
)

var allStatuses = []models.OrderStatus{
	models.StatusPending, models.StatusConfirmed, models.StatusProcessing,
	models.StatusShipped, models.StatusDelivered, models.StatusCancelled,
	models.StatusRefunded,
}

func TestTranslator_ModernRoundTrip(t *testing.T) {
	tr := NewTranslator()

	for _, s := range allStatuses {
		native, err := tr.ToModern(s)
		require.NoError(t, err)

		back, err := tr.FromModern(native)
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}
}

func TestTranslator_LegacyRoundTrip(t *testing.T) {
	tr := NewTranslator()

	for _, s := range allStatuses {
		native, err := tr.ToLegacy(s)
		require.NoError(t, err)
		assert.Len(t, native, 2)

		back, err := tr.FromLegacy(native)
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}
}

func TestTranslator_LegacyCodes(t *testing.T) {
	tr := NewTranslator()

	expected := map[models.OrderStatus]string{
		models.StatusPending:    "01",
		models.StatusConfirmed:  "02",
		models.StatusProcessing: "03",
		models.StatusShipped:    "04",
		models.StatusDelivered:  "05",
		models.StatusCancelled:  "90",
		models.StatusRefunded:   "91",
	}
	for s, code := range expected {
		got, err := tr.ToLegacy(s)
		require.NoError(t, err)
		assert.Equal(t, code, got, "%s", s)
	}
}

func TestTranslator_UnknownValues(t *testing.T) {
	tr := NewTranslator()

	_, err := tr.ToModern("ARCHIVED")
	assert.Error(t, err)

	_, err = tr.FromModern("archived")
	assert.Error(t, err)

	_, err = tr.ToLegacy("ARCHIVED")
	assert.Error(t, err)

	_, err = tr.FromLegacy("99")
	assert.Error(t, err)
}
