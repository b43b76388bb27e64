package geo

import (
	"math"
	"time"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two samples in kilometers.
// Altitude is ignored. Identical points return exactly 0.
func HaversineKm(a, b Sample) float64 {
	if a.Lat == b.Lat && a.Lng == b.Lng {
		return 0
	}

	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	dla := (b.Lat - a.Lat) * math.Pi / 180
	dln := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dla/2)*math.Sin(dla/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dln/2)*math.Sin(dln/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// HaversineMeters is HaversineKm scaled to meters. Used for the reporter
// movement threshold where kilometers would be an awkward unit.
func HaversineMeters(a, b Sample) float64 {
	return HaversineKm(a, b) * 1000
}

// RouteDistanceKm sums HaversineKm over consecutive pairs.
// Routes with fewer than 2 samples have length 0.
func RouteDistanceKm(route Route) float64 {
	if len(route) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(route); i++ {
		total += HaversineKm(route[i-1], route[i])
	}
	return total
}

// AverageSpeedKmh divides distance by duration in hours.
// A non-positive duration is a data anomaly, not an error: it yields 0.
func AverageSpeedKmh(distanceKm float64, startedAt, endedAt time.Time) float64 {
	duration := endedAt.Sub(startedAt)
	if duration <= 0 {
		return 0
	}
	return distanceKm / duration.Hours()
}
