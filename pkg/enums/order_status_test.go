package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	require.True(t, OrderStatusPending.CanTransitionTo(OrderStatusShipped))
	require.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCanceled))
	require.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusDelivered))
	require.True(t, OrderStatusShipped.CanTransitionTo(OrderStatusCanceled))

	// No backward moves, no resurrecting terminal states.
	require.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusPending))
	require.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusShipped))
	require.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCanceled))
	require.False(t, OrderStatusCanceled.CanTransitionTo(OrderStatusPending))
	require.False(t, OrderStatusPending.CanTransitionTo(OrderStatusDelivered))
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	require.Equal(t, OrderStatusShipped, status)

	_, err = ParseOrderStatus("returned")
	require.Error(t, err)
}
