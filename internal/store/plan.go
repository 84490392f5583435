package store

import (
	"fmt"

	"fieldroute/internal/model"
	"fieldroute/internal/route"
)

// buildPlan runs the optimizer core over already-loaded inputs. Shared by
// every Store implementation; persistence of the result stays per-backend.
func buildPlan(jobs []model.Job, techs []model.Technician, req model.OptimizeRequest) route.Plan {
	if req.MaxJobs > 0 {
		for i := range techs {
			techs[i].MaxJobs = req.MaxJobs
		}
	}
	plan := route.OptimizeRoutes(jobs, techs, req.PlanDate)
	route.RecordPlanMetrics(req.TenantID, req.PlanDate, plan.Metrics)
	return plan
}

// rosterFilter narrows the roster to the requested technician IDs, keeping
// roster order. An empty request means the whole active roster.
func rosterFilter(techs []model.Technician, ids []string) []model.Technician {
	if len(ids) == 0 {
		return techs
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]model.Technician, 0, len(ids))
	for _, t := range techs {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func validatePlanRequest(req model.OptimizeRequest) error {
	if req.TenantID == "" {
		return fmt.Errorf("plan routes: tenantId required")
	}
	if req.PlanDate == "" {
		return fmt.Errorf("plan routes: planDate required")
	}
	return nil
}
