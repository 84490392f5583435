package route

import (
	"math"

	"fieldroute/internal/model"
)

// BuildSchedule materializes a refined tour into concrete stop times for one
// technician. jobs must be the technician's assigned jobs in matrix order,
// so tour index k maps to jobs[k-1] (index 0 is the depot and has no job).
// The running clock starts at the technician's start of day; each stop adds
// the leg's travel time, then the job's duration, before the next leg.
func BuildSchedule(tour []int, jobs []model.Job, matrix [][]float64, tech model.Technician) model.OptimizedRoute {
	dayStart, err := ParseClock(tech.WorkingHours.Start)
	if err != nil {
		dayStart = 8 * 60
	}

	clock := dayStart
	totalDistance := 0.0
	totalTravel := 0

	stops := make([]model.RouteStop, 0, len(tour)-1)
	for i := 1; i < len(tour); i++ {
		leg := matrix[tour[i-1]][tour[i]]
		travel := TravelTime(leg)
		job := jobs[tour[i]-1]

		clock += travel
		arrival := clock
		clock += job.DurationMin

		totalDistance += leg
		totalTravel += travel
		stops = append(stops, model.RouteStop{
			JobID:         job.ID,
			Sequence:      i,
			ArrivalTime:   FormatClock(arrival),
			DepartureTime: FormatClock(clock),
			TravelTimeMin: travel,
			DistanceMiles: leg,
		})
	}

	totalDuration := clock - dayStart
	return model.OptimizedRoute{
		TechnicianID:       tech.ID,
		TenantID:           tech.TenantID,
		Status:             "planned",
		Stops:              stops,
		TotalDistanceMiles: totalDistance,
		TotalDurationMin:   totalDuration,
		TotalTravelTimeMin: totalTravel,
		EfficiencyScore:    efficiencyScore(totalDuration, totalTravel),
	}
}

// efficiencyScore is the percentage of the elapsed route span spent working
// rather than traveling. A zero-length span is vacuously all-productive and
// scores 100 instead of dividing by zero.
func efficiencyScore(totalDurationMin, totalTravelMin int) int {
	if totalDurationMin <= 0 {
		return 100
	}
	score := int(math.Round(float64(totalDurationMin-totalTravelMin) / float64(totalDurationMin) * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
