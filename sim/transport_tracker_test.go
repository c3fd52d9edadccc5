package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportationTracker(t *testing.T) {
	tt := NewTransportationTracker(3, 6)

	require.NoError(t, tt.IncrementInboundTonneKm(20, "r1", 1))
	require.NoError(t, tt.IncrementInboundTonneKm(5, "r2", 1))
	require.NoError(t, tt.IncrementInboundTonneKm(7.5, "r1", 4))

	assert.Equal(t, []float64{0, 25, 0, 0, 7.5, 0}, tt.InboundTonneKm())
	assert.Equal(t, "r2", tt.RouteID(1), "last shipment wins the timestep's route")
	assert.Equal(t, "", tt.RouteID(2))
	assert.Equal(t, 25.0, tt.Window(0, 4))
	assert.Equal(t, 32.5, tt.Window(-3, 100))
}

func TestTransportationTracker_RejectsNegativeAndOutOfRange(t *testing.T) {
	tt := NewTransportationTracker(3, 2)

	assert.Error(t, tt.IncrementInboundTonneKm(-1, "r1", 0))
	assert.Error(t, tt.IncrementInboundTonneKm(1, "r1", 2))
	assert.Equal(t, []float64{0, 0}, tt.InboundTonneKm())
}
