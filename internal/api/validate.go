package api

import (
	"fmt"

	"fieldroute/internal/model"
	"fieldroute/internal/route"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.PlanDate == "" {
		return fmt.Errorf("planDate required")
	}
	if req.MaxJobs < 0 {
		return fmt.Errorf("maxJobs must be >= 0")
	}
	return nil
}

func validateJobsIn(jobs []model.JobIn) error {
	if len(jobs) == 0 {
		return fmt.Errorf("jobs must not be empty")
	}
	for i, j := range jobs {
		if j.DurationMin <= 0 {
			return fmt.Errorf("jobs[%d]: durationMin must be > 0", i)
		}
		if j.ScheduledTime != "" {
			if _, err := route.ParseClock(j.ScheduledTime); err != nil {
				return fmt.Errorf("jobs[%d]: bad scheduledTime: %v", i, err)
			}
		}
		if j.Location != nil {
			if j.Location.Lat < -90 || j.Location.Lat > 90 || j.Location.Lng < -180 || j.Location.Lng > 180 {
				return fmt.Errorf("jobs[%d]: coordinates out of range", i)
			}
		}
	}
	return nil
}

func validateTechniciansIn(techs []model.TechnicianIn) error {
	if len(techs) == 0 {
		return fmt.Errorf("technicians must not be empty")
	}
	for i, t := range techs {
		if t.Name == "" {
			return fmt.Errorf("technicians[%d]: name required", i)
		}
		if _, err := route.ParseClock(t.WorkingHours.Start); err != nil {
			return fmt.Errorf("technicians[%d]: bad workingHours.start: %v", i, err)
		}
		if _, err := route.ParseClock(t.WorkingHours.End); err != nil {
			return fmt.Errorf("technicians[%d]: bad workingHours.end: %v", i, err)
		}
		if t.MaxJobs < 0 {
			return fmt.Errorf("technicians[%d]: maxJobs must be >= 0", i)
		}
	}
	return nil
}

var routeStatuses = map[string]bool{
	"planned": true, "dispatched": true, "completed": true, "canceled": true,
}

func validateRoutePatch(p model.RoutePatch) error {
	if p.Status == "" {
		return fmt.Errorf("status required")
	}
	if !routeStatuses[p.Status] {
		return fmt.Errorf("unknown status %q", p.Status)
	}
	return nil
}

func validateSubscriptionRequest(req model.SubscriptionRequest) error {
	if req.URL == "" {
		return fmt.Errorf("url required")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	return nil
}
