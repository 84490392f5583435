package model

// Core domain types for the field-service routing API.

// JobIn is the inbound representation of a unit of work to schedule.
type JobIn struct {
	ExternalRef    string      `json:"externalRef,omitempty"`
	CustomerName   string      `json:"customerName,omitempty"`
	Address        string      `json:"address,omitempty"`
	Location       *GeoPoint   `json:"location,omitempty"`
	DurationMin    int         `json:"durationMin"`
	ScheduledTime  string      `json:"scheduledTime,omitempty"` // "HH:MM", optional preferred time
	Priority       string      `json:"priority,omitempty"`      // low, medium, high, urgent
	TimeWindow     *TimeWindow `json:"timeWindow,omitempty"`
	RequiredSkills []string    `json:"requiredSkills,omitempty"`
}

// Job is the stored representation handed to the optimizer.
type Job struct {
	ID            string      `json:"id"`
	TenantID      string      `json:"tenantId"`
	ExternalRef   string      `json:"externalRef,omitempty"`
	CustomerName  string      `json:"customerName,omitempty"`
	Address       string      `json:"address,omitempty"`
	Location      *GeoPoint   `json:"location,omitempty"`
	DurationMin   int         `json:"durationMin"`
	ScheduledTime string      `json:"scheduledTime,omitempty"`
	Priority      string      `json:"priority,omitempty"`
	TimeWindow    *TimeWindow `json:"timeWindow,omitempty"`
	Status        string      `json:"status"` // pending, assigned, done, canceled
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TimeWindow bounds when a job may be serviced, "HH:MM" 24-hour clock.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TechnicianIn is the inbound representation of a routing agent.
type TechnicianIn struct {
	Name          string     `json:"name"`
	StartAddress  string     `json:"startAddress,omitempty"`
	StartLocation *GeoPoint  `json:"startLocation,omitempty"`
	EndLocation   *GeoPoint  `json:"endLocation,omitempty"`
	WorkingHours  TimeWindow `json:"workingHours"`
	Skills        []string   `json:"skills,omitempty"`
	MaxJobs       int        `json:"maxJobs,omitempty"`
}

type Technician struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenantId"`
	Name          string     `json:"name"`
	StartAddress  string     `json:"startAddress,omitempty"`
	StartLocation *GeoPoint  `json:"startLocation,omitempty"`
	EndLocation   *GeoPoint  `json:"endLocation,omitempty"`
	WorkingHours  TimeWindow `json:"workingHours"`
	Skills        []string   `json:"skills,omitempty"`
	MaxJobs       int        `json:"maxJobs,omitempty"`
	Active        bool       `json:"active"`
}

// RouteStop is one scheduled visit on a technician's route.
type RouteStop struct {
	JobID         string  `json:"jobId"`
	Sequence      int     `json:"sequence"`
	ArrivalTime   string  `json:"arrivalTime"`   // "HH:MM"
	DepartureTime string  `json:"departureTime"` // "HH:MM"
	TravelTimeMin int     `json:"travelTimeMin"`
	DistanceMiles float64 `json:"distanceMiles"`
}

// OptimizedRoute is the planned day for one technician.
type OptimizedRoute struct {
	ID                 string      `json:"id"`
	Version            int         `json:"version"`
	TenantID           string      `json:"tenantId"`
	TechnicianID       string      `json:"technicianId"`
	PlanDate           string      `json:"planDate,omitempty"`
	Status             string      `json:"status"` // planned, dispatched, completed, canceled
	Stops              []RouteStop `json:"stops"`
	TotalDistanceMiles float64     `json:"totalDistanceMiles"`
	TotalDurationMin   int         `json:"totalDurationMin"`
	TotalTravelTimeMin int         `json:"totalTravelTimeMin"`
	EfficiencyScore    int         `json:"efficiencyScore"`
}

// UnroutedJob reports a job that could not be placed on any route.
type UnroutedJob struct {
	JobID  string `json:"jobId"`
	Reason string `json:"reason"`
}

// OptimizeRequest asks the service to plan routes for a date.
type OptimizeRequest struct {
	TenantID      string   `json:"tenantId"`
	PlanDate      string   `json:"planDate"`
	TechnicianIDs []string `json:"technicianIds,omitempty"` // empty means full roster
	MaxJobs       int      `json:"maxJobs,omitempty"`       // per-technician override
}

// PlanResult is what an optimization run produced.
type PlanResult struct {
	BatchID  string           `json:"batchId"`
	Routes   []OptimizedRoute `json:"routes"`
	Unrouted []UnroutedJob    `json:"unrouted,omitempty"`
}

type RoutePatch struct {
	Status string `json:"status,omitempty"`
}

// ClusterRequest asks for proximity groups over a set of jobs.
type ClusterRequest struct {
	TenantID    string   `json:"tenantId"`
	JobIDs      []string `json:"jobIds,omitempty"` // empty means all pending jobs
	RadiusMiles float64  `json:"radiusMiles,omitempty"`
}

// TechnicianLocationIn is a live position report from the field.
type TechnicianLocationIn struct {
	RouteID string  `json:"routeId,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	TS      string  `json:"ts,omitempty"`
}

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
