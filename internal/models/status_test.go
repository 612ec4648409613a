package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []OrderStatus{
		StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded,
	} {
		assert.True(t, s.Valid(), "%s", s)
	}
	assert.False(t, OrderStatus("ARCHIVED").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())
	assert.False(t, StatusDelivered.Terminal())
	assert.False(t, StatusPending.Terminal())
}

func TestCanTransition_HappyPath(t *testing.T) {
	path := []OrderStatus{
		StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusRefunded,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]),
			"%s -> %s", path[i], path[i+1])
	}
}

func TestCanTransition_Cancellation(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))
	assert.True(t, CanTransition(StatusProcessing, StatusCancelled))

	// Once goods left the warehouse the order can only be refunded.
	assert.False(t, CanTransition(StatusShipped, StatusCancelled))
	assert.False(t, CanTransition(StatusDelivered, StatusCancelled))
	assert.True(t, CanTransition(StatusShipped, StatusRefunded))
}

func TestCanTransition_NoBackwardsOrSkips(t *testing.T) {
	assert.False(t, CanTransition(StatusDelivered, StatusConfirmed))
	assert.False(t, CanTransition(StatusShipped, StatusPending))
	assert.False(t, CanTransition(StatusPending, StatusShipped))
	assert.False(t, CanTransition(StatusPending, StatusDelivered))
}

func TestCanTransition_TerminalStatesAreDeadEnds(t *testing.T) {
	all := []OrderStatus{
		StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded,
	}
	for _, target := range all {
		assert.False(t, CanTransition(StatusCancelled, target), "CANCELLED -> %s", target)
		assert.False(t, CanTransition(StatusRefunded, target), "REFUNDED -> %s", target)
	}
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(StatusPending, StatusConfirmed))

	err := ValidateTransition(StatusDelivered, StatusConfirmed)
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, StatusDelivered, transitionErr.From)
	assert.Equal(t, StatusConfirmed, transitionErr.To)

	err = ValidateTransition(StatusPending, OrderStatus("ARCHIVED"))
	assert.ErrorAs(t, err, &transitionErr)
}
