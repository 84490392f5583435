package route

import (
	"fmt"
	"testing"

	"fieldroute/internal/model"
)

func tech(start, end string, maxJobs int) model.Technician {
	return model.Technician{
		ID:            "tech1",
		WorkingHours:  model.TimeWindow{Start: start, End: end},
		MaxJobs:       maxJobs,
		StartLocation: &model.GeoPoint{Lat: 33.45, Lng: -112.07},
	}
}

func jobAt(id string, lat, lng float64) model.Job {
	return model.Job{ID: id, Location: &model.GeoPoint{Lat: lat, Lng: lng}, DurationMin: 60}
}

func TestAssignJobsFiltersByWorkingHours(t *testing.T) {
	early := jobAt("j1", 33.4, -112.0)
	early.ScheduledTime = "06:00"
	inside := jobAt("j2", 33.5, -112.1)
	inside.ScheduledTime = "10:00"
	open := jobAt("j3", 33.6, -112.2) // no preference

	got := AssignJobs([]model.Job{early, inside, open}, tech("08:00", "17:00", 0), 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 eligible jobs, got %d", len(got))
	}
	for _, j := range got {
		if j.ID == "j1" {
			t.Fatalf("job scheduled before start of day must be excluded")
		}
	}
}

func TestAssignJobsBoundaryTimesAreEligible(t *testing.T) {
	atStart := jobAt("j1", 33.4, -112.0)
	atStart.ScheduledTime = "08:00"
	atEnd := jobAt("j2", 33.5, -112.1)
	atEnd.ScheduledTime = "17:00"
	got := AssignJobs([]model.Job{atStart, atEnd}, tech("08:00", "17:00", 0), 0)
	if len(got) != 2 {
		t.Fatalf("window is inclusive; expected 2, got %d", len(got))
	}
}

func TestAssignJobsTruncatesToCapacityInOrder(t *testing.T) {
	var jobs []model.Job
	for i := 0; i < 15; i++ {
		jobs = append(jobs, jobAt(fmt.Sprintf("j%d", i), 33.4, -112.0))
	}
	got := AssignJobs(jobs, tech("08:00", "17:00", 0), 0)
	if len(got) != DefaultMaxJobs {
		t.Fatalf("expected default cap %d, got %d", DefaultMaxJobs, len(got))
	}
	if got[0].ID != "j0" || got[len(got)-1].ID != fmt.Sprintf("j%d", DefaultMaxJobs-1) {
		t.Fatalf("truncation must keep input-list order, got %s..%s", got[0].ID, got[len(got)-1].ID)
	}

	got = AssignJobs(jobs, tech("08:00", "17:00", 3), 0)
	if len(got) != 3 {
		t.Fatalf("expected technician cap 3, got %d", len(got))
	}
}

func TestRoutableReportsMissingCoordinates(t *testing.T) {
	good := jobAt("j1", 33.4, -112.0)
	bad := model.Job{ID: "j2", DurationMin: 30}
	ok, unrouted := Routable([]model.Job{good, bad})
	if len(ok) != 1 || ok[0].ID != "j1" {
		t.Fatalf("expected only geocoded job, got %v", ok)
	}
	if len(unrouted) != 1 || unrouted[0].JobID != "j2" || unrouted[0].Reason != "missing coordinates" {
		t.Fatalf("expected missing-coordinates report, got %v", unrouted)
	}
}

func TestGroupByProximitySeedBased(t *testing.T) {
	// j2 is within 5mi of the seed j1; j3 is within 5mi of j2 but not of j1,
	// so it must seed its own group (no transitive closure).
	j1 := jobAt("j1", 33.4000, -112.00)
	j2 := jobAt("j2", 33.4580, -112.00) // ~4 miles north of j1
	j3 := jobAt("j3", 33.5160, -112.00) // ~8 miles north of j1, ~4 of j2
	groups, ungrouped := GroupByProximity([]model.Job{j1, j2, j3}, 5)
	if len(ungrouped) != 0 {
		t.Fatalf("unexpected ungrouped jobs: %v", ungrouped)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].ID != "j1" || groups[0][1].ID != "j2" {
		t.Fatalf("first group should be seed j1 with j2: %v", groups[0])
	}
	if len(groups[1]) != 1 || groups[1][0].ID != "j3" {
		t.Fatalf("j3 should seed its own group: %v", groups[1])
	}
}

func TestGroupByProximitySkipsUngecoded(t *testing.T) {
	j1 := jobAt("j1", 33.4, -112.0)
	j2 := model.Job{ID: "j2"}
	groups, ungrouped := GroupByProximity([]model.Job{j1, j2}, 5)
	if len(groups) != 1 || len(ungrouped) != 1 || ungrouped[0].ID != "j2" {
		t.Fatalf("ungeocoded job must be returned separately: %v %v", groups, ungrouped)
	}
}
