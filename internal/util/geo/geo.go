// Package geo holds coordinate helpers shared by the order model and
// the dispatch backend.
package geo

import (
	"fmt"
	"math"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceKm returns the haversine distance between two points,
// rounded to two decimals.
func DistanceKm(a, b Coordinate) float64 {
	const earthRadiusKm = 6371
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180)*math.Cos(b.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(earthRadiusKm*c*100) / 100
}

// FormatDistanceKm renders a distance in meters below one kilometer and
// in kilometers above.
func FormatDistanceKm(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%.0f m", km*1000)
	}
	return fmt.Sprintf("%.1f km", km)
}
