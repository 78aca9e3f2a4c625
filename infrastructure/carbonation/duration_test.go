package carbonation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateForceDuration(t *testing.T) {
	set, err := EstimateCarbonationDuration(MethodForceSet, 0.8, 2.4, 4, 12)
	require.NoError(t, err)
	burst, err := EstimateCarbonationDuration(MethodForceBurst, 0.8, 2.4, 4, 12)
	require.NoError(t, err)

	assert.Greater(t, set.Hours, burst.Hours)
	assert.InDelta(t, set.Hours/24, set.Days, 1e-9)

	f := (2.4 - 0.8) / (set.EquilibriumVolumes - 0.8)
	k := 0.012 * math.Min(1.3, math.Pow(1.03, 6))
	assert.InDelta(t, -math.Log(1-f)/k, set.Hours, 1e-9)
}

func TestEstimateForceDurationAlreadyCarbonated(t *testing.T) {
	d, err := EstimateCarbonationDuration(MethodForceSet, 2.6, 2.4, 4, 12)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Hours)
}

func TestEstimateForceDurationUnreachable(t *testing.T) {
	_, err := EstimateCarbonationDuration(MethodForceSet, 0, 3.0, 4, 5)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestEstimateBottleConditioning(t *testing.T) {
	d, err := EstimateCarbonationDuration(MethodBottleConditioned, 0.8, 2.5, 20, 0)
	require.NoError(t, err)
	assert.InDelta(t, 14, d.Days, 1e-9)

	d, err = EstimateCarbonationDuration(MethodBottleConditioned, 0.8, 2.5, 10, 0)
	require.NoError(t, err)
	assert.InDelta(t, 28, d.Days, 1e-9)

	d, err = EstimateCarbonationDuration(MethodBottleConditioned, 0.8, 2.5, 35, 0)
	require.NoError(t, err)
	assert.InDelta(t, 7, d.Days, 1e-9)
}

func TestTemperatureRateFactorBounds(t *testing.T) {
	assert.InDelta(t, 1.0, temperatureRateFactor(10), 1e-12)
	assert.InDelta(t, 1.3, temperatureRateFactor(-20), 1e-12)
	assert.InDelta(t, math.Pow(0.97, 15), temperatureRateFactor(25), 1e-12)
	assert.InDelta(t, 0.5, temperatureRateFactor(40), 1e-12)
}
