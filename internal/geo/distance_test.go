package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineIdenticalPoints(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(-33.45, -70.66, -33.45, -70.66))
	assert.Equal(t, 0.0, EstimateRoadKm(0, 0, 0, 0))
}

func TestHaversineKnownDistance(t *testing.T) {
	// Santiago (-33.4489, -70.6693) to Valparaíso (-33.0472, -71.6127), ~97 km great-circle
	d := Haversine(-33.4489, -70.6693, -33.0472, -71.6127)
	assert.InDelta(t, 98.0, d, 3.0)
}

func TestEstimateRoadKmAppliesFactor(t *testing.T) {
	h := Haversine(-33.4489, -70.6693, -33.0472, -71.6127)
	r := EstimateRoadKm(-33.4489, -70.6693, -33.0472, -71.6127)
	assert.InDelta(t, h*RoadFactor, r, 1e-9)
}

func TestHaversineSymmetric(t *testing.T) {
	a := Haversine(10.5, 20.25, -4.75, 133.0)
	b := Haversine(-4.75, 133.0, 10.5, 20.25)
	assert.InDelta(t, a, b, 1e-9)
}

func TestHaversineTotalOnExtremeInput(t *testing.T) {
	// Out-of-range coordinates still produce a finite numeric result.
	d := Haversine(200, -500, -200, 500)
	assert.False(t, math.IsNaN(d))
	assert.False(t, math.IsInf(d, 0))
	assert.GreaterOrEqual(t, Haversine(90, 0, -90, 0), 0.0)
}
