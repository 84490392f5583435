package route

import (
	"fmt"

	"fieldroute/internal/model"
)

// DefaultMinEfficiency is the advisory floor for a route's efficiency score.
const DefaultMinEfficiency = 70

// ValidateRoute checks a materialized route against a technician's
// constraints and returns human-readable violations: overtime past end of
// day, exceeding max-jobs capacity, and an efficiency score below the floor.
// Violations are advisory; the route is never mutated or rejected here.
func ValidateRoute(rt model.OptimizedRoute, tech model.Technician, minEfficiency int) []string {
	if minEfficiency <= 0 {
		minEfficiency = DefaultMinEfficiency
	}
	var violations []string

	if len(rt.Stops) > 0 {
		if dayEnd, err := ParseClock(tech.WorkingHours.End); err == nil {
			last := rt.Stops[len(rt.Stops)-1]
			if dep, err := ParseClock(last.DepartureTime); err == nil && dep > dayEnd {
				violations = append(violations, fmt.Sprintf(
					"last stop departs at %s, after end of day %s", last.DepartureTime, tech.WorkingHours.End))
			}
		}
	}

	maxJobs := tech.MaxJobs
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	if len(rt.Stops) > maxJobs {
		violations = append(violations, fmt.Sprintf(
			"route has %d jobs, exceeding capacity of %d", len(rt.Stops), maxJobs))
	}

	if rt.EfficiencyScore < minEfficiency {
		violations = append(violations, fmt.Sprintf(
			"efficiency score %d%% is below the %d%% floor", rt.EfficiencyScore, minEfficiency))
	}
	return violations
}

// Savings reports how much shorter one tour is than another over the same
// matrix, for before/after comparisons.
type Savings struct {
	DistanceMiles float64 `json:"distanceMiles"`
	TravelTimeMin int     `json:"travelTimeMin"`
}

// OptimizationSavings compares two index-permutation tours over a shared
// matrix: typically the nearest-neighbor seed against the 2-opt result.
func OptimizationSavings(original, optimized []int, matrix [][]float64) Savings {
	before := TourDistance(original, matrix)
	after := TourDistance(optimized, matrix)
	return Savings{
		DistanceMiles: before - after,
		TravelTimeMin: TravelTime(before) - TravelTime(after),
	}
}
