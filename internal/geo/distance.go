package geo

import (
	"math"
)

const (
	// earthRadiusKm is Earth's mean radius in kilometers
	earthRadiusKm = 6371.0

	// RoadFactor approximates real road routing over straight-line GPS distance
	RoadFactor = 1.25
)

// Haversine returns the great-circle distance in kilometers between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// EstimateRoadKm estimates road travel distance between two GPS points.
// Straight-line distance is scaled by a fixed correction factor; no network calls.
func EstimateRoadKm(lat1, lon1, lat2, lon2 float64) float64 {
	return Haversine(lat1, lon1, lat2, lon2) * RoadFactor
}
