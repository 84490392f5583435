package route

import "fieldroute/internal/model"

// Plan is the outcome of one optimization run.
type Plan struct {
	Routes   []model.OptimizedRoute
	Unrouted []model.UnroutedJob
	Metrics  PlanMetrics
}

// PlanMetrics summarizes what the refinement stage bought over the greedy
// seed tours, for reporting and the admin metrics endpoints.
type PlanMetrics struct {
	Technicians        int     `json:"technicians"`
	JobsRouted         int     `json:"jobsRouted"`
	JobsUnrouted       int     `json:"jobsUnrouted"`
	TotalDistanceMiles float64 `json:"totalDistanceMiles"`
	DistanceSavedMiles float64 `json:"distanceSavedMiles"`
	TravelTimeSavedMin int     `json:"travelTimeSavedMin"`
}

// OptimizeRoutes plans one route per technician, in roster order. For each
// technician it assigns eligible jobs, builds the depot-anchored distance
// matrix, seeds a nearest-neighbor tour, refines it with 2-opt and
// materializes the schedule. A job lands on at most one route per run;
// technicians with nothing to do are skipped. The plan date is carried onto
// the output routes but takes no part in eligibility, which compares only
// scheduled times against working hours.
//
// Jobs without coordinates are excluded up front and reported in
// Plan.Unrouted; jobs no technician could take are reported likewise.
func OptimizeRoutes(jobs []model.Job, technicians []model.Technician, planDate string) Plan {
	routable, unrouted := Routable(jobs)
	claimed := make(map[string]bool, len(routable))

	var plan Plan
	plan.Unrouted = unrouted
	for _, tech := range technicians {
		candidates := make([]model.Job, 0, len(routable))
		for _, j := range routable {
			if !claimed[j.ID] {
				candidates = append(candidates, j)
			}
		}
		assigned := AssignJobs(candidates, tech, 0)
		if len(assigned) == 0 {
			continue
		}
		for _, j := range assigned {
			claimed[j.ID] = true
		}

		locations := make([]Location, 0, len(assigned)+1)
		locations = append(locations, depotLocation(tech, assigned))
		for _, j := range assigned {
			locations = append(locations, Location{Lat: j.Location.Lat, Lng: j.Location.Lng, Address: j.Address})
		}

		matrix := BuildMatrix(locations)
		seed := NearestNeighborTour(matrix, 0)
		tour := TwoOptImprove(seed, matrix)

		rt := BuildSchedule(tour, assigned, matrix, tech)
		rt.PlanDate = planDate

		plan.Routes = append(plan.Routes, rt)
		plan.Metrics.Technicians++
		plan.Metrics.JobsRouted += len(assigned)
		plan.Metrics.TotalDistanceMiles += rt.TotalDistanceMiles
		saved := OptimizationSavings(seed, tour, matrix)
		plan.Metrics.DistanceSavedMiles += saved.DistanceMiles
		plan.Metrics.TravelTimeSavedMin += saved.TravelTimeMin
	}

	for _, j := range routable {
		if !claimed[j.ID] {
			plan.Unrouted = append(plan.Unrouted, model.UnroutedJob{JobID: j.ID, Reason: "no eligible technician"})
		}
	}
	plan.Metrics.JobsUnrouted = len(plan.Unrouted)
	return plan
}

// depotLocation resolves the tour's index-0 anchor. A technician without a
// geocoded start falls back to the first assigned job's site, which keeps
// the matrix well-formed without inventing a position in the ocean.
func depotLocation(tech model.Technician, assigned []model.Job) Location {
	if tech.StartLocation != nil {
		return Location{Lat: tech.StartLocation.Lat, Lng: tech.StartLocation.Lng, Address: tech.StartAddress}
	}
	first := assigned[0]
	return Location{Lat: first.Location.Lat, Lng: first.Location.Lng, Address: first.Address}
}
