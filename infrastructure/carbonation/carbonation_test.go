package carbonation

import (
	"errors"
	"testing"

	"cellarbook/infrastructure/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateCO2VolumesKnownPoint(t *testing.T) {
	// 38 °F at 12 psi is a common keg serving point of roughly 2.57 volumes.
	v, err := CalculateCO2Volumes(units.FahrenheitToCelsius(38), 12)
	require.NoError(t, err)
	assert.InDelta(t, 2.57, v, 0.01)
}

func TestCalculateCO2VolumesRejectsNegativePressure(t *testing.T) {
	_, err := CalculateCO2Volumes(4, -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPressureAndVolumesAreInverse(t *testing.T) {
	for _, tempC := range []float64{0, 2, 5, 10} {
		for _, vol := range []float64{2.0, 2.5, 3.0} {
			p, err := CalculateRequiredPressure(vol, tempC)
			require.NoError(t, err)
			if p == 0 {
				continue
			}
			got, err := CalculateCO2Volumes(tempC, p)
			require.NoError(t, err)
			assert.InDelta(t, vol, got, 1e-6, "temp=%v vol=%v", tempC, vol)
		}
	}
}

func TestRequiredPressureMonotonic(t *testing.T) {
	prev := -1.0
	for _, vol := range []float64{2.0, 2.2, 2.4, 2.6, 2.8, 3.0} {
		p, err := CalculateRequiredPressure(vol, 4)
		require.NoError(t, err)
		assert.Greater(t, p, prev)
		prev = p
	}

	prev = -1.0
	for _, tempC := range []float64{0, 4, 8, 12, 16} {
		p, err := CalculateRequiredPressure(2.5, tempC)
		require.NoError(t, err)
		assert.Greater(t, p, prev)
		prev = p
	}
}

func TestRequiredPressureClampsAtZero(t *testing.T) {
	p, err := CalculateRequiredPressure(0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	_, err = CalculateRequiredPressure(7, 4)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResidualCO2(t *testing.T) {
	assert.InDelta(t, 0.86, ResidualCO2(20), 0.01)
	assert.Greater(t, ResidualCO2(10), ResidualCO2(20))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("force_burst")
	require.NoError(t, err)
	assert.True(t, m.IsForced())

	m, err = ParseMethod("bottle_conditioned")
	require.NoError(t, err)
	assert.False(t, m.IsForced())

	_, err = ParseMethod("shake")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
