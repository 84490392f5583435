package route

import "fieldroute/internal/model"

const (
	// DefaultMaxJobs caps a technician's day when no explicit limit is set.
	DefaultMaxJobs = 10

	// DefaultClusterRadiusMiles is the proximity-group radius around a seed job.
	DefaultClusterRadiusMiles = 5.0
)

// AssignJobs filters the candidate list down to jobs a technician can take:
// a job is eligible when it has no scheduled time, or its scheduled time
// falls within the technician's working hours. Eligible jobs are then
// truncated to the technician's max-jobs capacity in input-list order; no
// priority or proximity ranking happens here. Callers must already have
// excluded jobs without coordinates (see Routable).
func AssignJobs(jobs []model.Job, tech model.Technician, maxJobs int) []model.Job {
	if maxJobs <= 0 {
		maxJobs = tech.MaxJobs
	}
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}

	dayStart, err1 := ParseClock(tech.WorkingHours.Start)
	dayEnd, err2 := ParseClock(tech.WorkingHours.End)
	hoursKnown := err1 == nil && err2 == nil

	assigned := make([]model.Job, 0, maxJobs)
	for _, j := range jobs {
		if j.ScheduledTime != "" && hoursKnown {
			t, err := ParseClock(j.ScheduledTime)
			if err != nil {
				// Unparseable preference is treated as no preference.
				t = dayStart
			}
			if t < dayStart || t > dayEnd {
				continue
			}
		}
		assigned = append(assigned, j)
		if len(assigned) >= maxJobs {
			break
		}
	}
	return assigned
}

// Routable splits jobs into those with coordinates and those that cannot be
// routed. Jobs without a geocoded location are reported rather than placed
// at (0,0); a missing geocode is a data error, not a position.
func Routable(jobs []model.Job) (ok []model.Job, unrouted []model.UnroutedJob) {
	ok = make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Location == nil {
			unrouted = append(unrouted, model.UnroutedJob{JobID: j.ID, Reason: "missing coordinates"})
			continue
		}
		ok = append(ok, j)
	}
	return ok, unrouted
}

// GroupByProximity clusters jobs into compact zones with a greedy single
// pass: each unassigned job in turn seeds a group, then every remaining
// unassigned job within radiusMiles of that seed joins it. Membership is
// measured against the seed only; groups are not transitively closed. Jobs
// without coordinates are returned separately.
func GroupByProximity(jobs []model.Job, radiusMiles float64) (groups [][]model.Job, ungrouped []model.Job) {
	if radiusMiles <= 0 {
		radiusMiles = DefaultClusterRadiusMiles
	}
	taken := make([]bool, len(jobs))
	for i, seed := range jobs {
		if taken[i] {
			continue
		}
		if seed.Location == nil {
			taken[i] = true
			ungrouped = append(ungrouped, seed)
			continue
		}
		taken[i] = true
		group := []model.Job{seed}
		for k := i + 1; k < len(jobs); k++ {
			if taken[k] || jobs[k].Location == nil {
				continue
			}
			d := Distance(seed.Location.Lat, seed.Location.Lng, jobs[k].Location.Lat, jobs[k].Location.Lng)
			if d <= radiusMiles {
				taken[k] = true
				group = append(group, jobs[k])
			}
		}
		groups = append(groups, group)
	}
	return groups, ungrouped
}
