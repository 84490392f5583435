// Package route implements the technician route optimizer: pairwise
// great-circle distances, greedy tour construction, 2-opt refinement and
// schedule materialization. Everything here is pure in-memory computation;
// persistence and transport live elsewhere.
package route

import (
	"fmt"
	"math"
)

const (
	// earthRadiusMiles is the mean Earth radius used by the Haversine formula.
	earthRadiusMiles = 3959.0

	// avgSpeedMph is the flat urban travel speed assumed for all legs,
	// regardless of time of day or road network.
	avgSpeedMph = 30.0

	minutesPerDay = 24 * 60
)

// Location is a geocoded point with a display address.
type Location struct {
	Lat     float64
	Lng     float64
	Address string
}

// Distance returns the great-circle distance in miles between two points.
// Symmetric: Distance(a, b) == Distance(b, a).
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

// TravelTime converts a leg distance to whole minutes at the flat average speed.
func TravelTime(distanceMiles float64) int {
	return int(math.Round(distanceMiles / avgSpeedMph * 60))
}

// ParseClock parses a 24-hour "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM", wrapping past
// midnight without signaling day rollover.
func FormatClock(minutes int) string {
	minutes %= minutesPerDay
	if minutes < 0 {
		minutes += minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
