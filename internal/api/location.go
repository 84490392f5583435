package api

import (
	"sync"
)

// LatestLocation holds the latest known position for a technician on a route.
type LatestLocation struct {
	Tenant       string  `json:"tenantId"`
	RouteID      string  `json:"routeId"`
	TechnicianID string  `json:"technicianId"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	TS           string  `json:"ts"`
}

// LocationCache stores latest technician positions per tenant/route.
type LocationCache struct {
	mu sync.Mutex
	// key: tenant|routeId|technicianId
	m map[string]LatestLocation
}

func NewLocationCache() *LocationCache { return &LocationCache{m: map[string]LatestLocation{}} }

func (c *LocationCache) key(tenant, routeID, techID string) string {
	return tenant + "|" + routeID + "|" + techID
}

// Upsert stores or updates the latest position for a technician.
func (c *LocationCache) Upsert(tenant, routeID, techID string, lat, lng float64, ts string) {
	if tenant == "" || routeID == "" || techID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[c.key(tenant, routeID, techID)] = LatestLocation{
		Tenant: tenant, RouteID: routeID, TechnicianID: techID, Lat: lat, Lng: lng, TS: ts,
	}
}

// ListByRoute returns the latest positions reported on a route.
func (c *LocationCache) ListByRoute(tenant, routeID string) []LatestLocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []LatestLocation{}
	prefix := tenant + "|" + routeID + "|"
	for k, v := range c.m {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, v)
		}
	}
	return out
}
