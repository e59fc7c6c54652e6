package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_Matrix(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"Ordered to on-ship", StatusOrdered, StatusOnShip, true},
		{"Ordered to canceled", StatusOrdered, StatusCanceled, true},
		{"Ordered to completed skips shipping", StatusOrdered, StatusCompleted, false},
		{"On-ship to completed", StatusOnShip, StatusCompleted, true},
		{"On-ship to canceled", StatusOnShip, StatusCanceled, true},
		{"On-ship back to ordered", StatusOnShip, StatusOrdered, false},
		{"Completed to canceled", StatusCompleted, StatusCanceled, false},
		{"Completed to on-ship", StatusCompleted, StatusOnShip, false},
		{"Canceled to ordered", StatusCanceled, StatusOrdered, false},
		{"Canceled to completed", StatusCanceled, StatusCompleted, false},
		{"Same status while ordered", StatusOrdered, StatusOrdered, true},
		{"Same status while on-ship", StatusOnShip, StatusOnShip, true},
		{"Same status while completed", StatusCompleted, StatusCompleted, false},
		{"Same status while canceled", StatusCanceled, StatusCanceled, false},
		{"Unknown source", Status("SHIPPED"), StatusCompleted, false},
		{"Unknown target", StatusOrdered, Status("REFUNDED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(StatusOrdered))
	assert.True(t, CanCancel(StatusOnShip))
	assert.False(t, CanCancel(StatusCompleted))
	assert.False(t, CanCancel(StatusCanceled))
}

func TestTransition(t *testing.T) {
	next, err := Transition(StatusOrdered, StatusOnShip)
	require.NoError(t, err)
	assert.Equal(t, StatusOnShip, next)

	next, err = Transition(StatusCanceled, StatusOrdered)
	require.Error(t, err)
	assert.Equal(t, StatusCanceled, next)

	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StatusCanceled, terr.From)
	assert.Equal(t, StatusOrdered, terr.To)
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusOrdered.Valid())
	assert.True(t, StatusOnShip.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.True(t, StatusCanceled.Valid())
	assert.False(t, Status("").Valid())
	assert.False(t, Status("ordered").Valid())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusOrdered.Terminal())
	assert.False(t, StatusOnShip.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCanceled.Terminal())
}
