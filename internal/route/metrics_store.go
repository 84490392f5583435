package route

import "sync"

// In-process snapshot of the latest plan metrics per tenant and date, read
// back by the admin endpoints. Survives only for the process lifetime.

type metricsKey struct {
	Tenant   string
	PlanDate string
}

var (
	metricsMu   sync.Mutex
	planMetrics = map[metricsKey]PlanMetrics{}
)

// RecordPlanMetrics stores the metrics of the latest run for a tenant/date.
func RecordPlanMetrics(tenant, planDate string, m PlanMetrics) {
	metricsMu.Lock()
	planMetrics[metricsKey{Tenant: tenant, PlanDate: planDate}] = m
	metricsMu.Unlock()
}

// GetPlanMetrics returns recorded metrics for a tenant, keyed by plan date.
// An empty planDate returns every date on record.
func GetPlanMetrics(tenant, planDate string) map[string]PlanMetrics {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := map[string]PlanMetrics{}
	for k, v := range planMetrics {
		if k.Tenant != tenant {
			continue
		}
		if planDate != "" && k.PlanDate != planDate {
			continue
		}
		out[k.PlanDate] = v
	}
	return out
}
