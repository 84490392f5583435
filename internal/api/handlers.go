package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fieldroute/internal/buildinfo"
	"fieldroute/internal/metrics"
	"fieldroute/internal/model"
	"fieldroute/internal/route"
	"fieldroute/internal/store"
	"fieldroute/internal/webhooks"
)

// JobsHandler handles POST/GET /v1/jobs
func (s *Server) JobsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			TenantID string        `json:"tenantId"`
			Jobs     []model.JobIn `json:"jobs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		if err := validateJobsIn(req.Jobs); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid jobs", err.Error(), r.URL.Path)
			return
		}
		ids, err := s.Store.CreateJobs(r.Context(), req.TenantID, req.Jobs)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create jobs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ids": ids, "created": len(ids)})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		status := r.URL.Query().Get("status")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListJobs(r.Context(), tenant, status, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List jobs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// JobClustersHandler handles POST /v1/jobs/clusters: proximity groups over
// the tenant's pending jobs (or an explicit id list).
func (s *Server) JobClustersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.ClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.TenantID == "" {
		_, req.TenantID = s.withTenant(r)
	}
	radius := req.RadiusMiles
	if radius <= 0 {
		radius = s.Cfg.Optimizer.ClusterRadiusMiles
	}

	var jobs []model.Job
	var err error
	if len(req.JobIDs) > 0 {
		jobs, err = s.Store.GetJobs(r.Context(), req.TenantID, req.JobIDs)
	} else {
		jobs, _, err = s.Store.ListJobs(r.Context(), req.TenantID, "pending", "", 500)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeProblem(w, status, "Load jobs failed", err.Error(), r.URL.Path)
		return
	}

	groups, ungrouped := route.GroupByProximity(jobs, radius)
	writeJSON(w, http.StatusOK, map[string]any{
		"radiusMiles": radius,
		"groups":      groups,
		"ungrouped":   ungrouped,
	})
}

// TechniciansHandler handles POST/GET /v1/technicians
func (s *Server) TechniciansHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			TenantID    string               `json:"tenantId"`
			Technicians []model.TechnicianIn `json:"technicians"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			_, req.TenantID = s.withTenant(r)
		}
		if err := validateTechniciansIn(req.Technicians); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid technicians", err.Error(), r.URL.Path)
			return
		}
		ids, err := s.Store.CreateTechnicians(r.Context(), req.TenantID, req.Technicians)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create technicians failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ids": ids, "created": len(ids)})
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListTechnicians(r.Context(), tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List technicians failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// TechnicianByIDHandler handles /v1/technicians/{id}/location and
// /v1/technicians/{id}/routes.
func (s *Server) TechnicianByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/technicians/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	_, tenant := s.withTenant(r)
	pr := s.getPrincipal(r)

	switch {
	case action == "location" && r.Method == http.MethodPost:
		// Technicians may only report for themselves.
		if !pr.CanDispatch() && pr.TechnicianID != id {
			writeProblem(w, http.StatusForbidden, "Forbidden", "cannot report location for another technician", r.URL.Path)
			return
		}
		var in model.TechnicianLocationIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if _, err := s.Store.GetTechnician(r.Context(), tenant, id); err != nil {
			writeProblem(w, http.StatusNotFound, "Technician not found", err.Error(), r.URL.Path)
			return
		}
		ts := in.TS
		if ts == "" {
			ts = time.Now().UTC().Format(time.RFC3339)
		}
		s.Locations.Upsert(tenant, in.RouteID, id, in.Lat, in.Lng, ts)
		data := map[string]any{"technicianId": id, "routeId": in.RouteID, "lat": in.Lat, "lng": in.Lng, "ts": ts}
		if in.RouteID != "" {
			s.Broker.Publish(in.RouteID, SSEEvent{Type: webhooks.EventTechnicianLocation, Data: data})
		}
		s.Pub.Emit(r.Context(), tenant, webhooks.EventTechnicianLocation, data)
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "ts": ts})
	case action == "routes" && r.Method == http.MethodGet:
		if !pr.CanDispatch() && pr.TechnicianID != id {
			writeProblem(w, http.StatusForbidden, "Forbidden", "not your routes", r.URL.Path)
			return
		}
		items, err := s.Store.ListRoutesForTechnician(r.Context(), tenant, id)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List routes failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case action == "" && r.Method == http.MethodGet:
		t, err := s.Store.GetTechnician(r.Context(), tenant, id)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Technician not found", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, t)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.TenantID == "" {
		_, req.TenantID = s.withTenant(r)
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	if req.MaxJobs == 0 {
		req.MaxJobs = s.Cfg.Optimizer.MaxJobs
	}

	start := time.Now()
	res, err := s.Store.PlanRoutes(r.Context(), req)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Plan routes failed", err.Error(), r.URL.Path)
		return
	}
	metrics.OptimizeDuration.Observe(time.Since(start).Seconds())
	metrics.PlansTotal.WithLabelValues(req.TenantID).Inc()
	routed := 0
	for _, rt := range res.Routes {
		routed += len(rt.Stops)
	}
	metrics.JobsRouted.WithLabelValues(req.TenantID, "routed").Add(float64(routed))
	metrics.JobsRouted.WithLabelValues(req.TenantID, "unrouted").Add(float64(len(res.Unrouted)))
	if pm, ok := route.GetPlanMetrics(req.TenantID, req.PlanDate)[req.PlanDate]; ok {
		metrics.RefinementSavings.Observe(pm.DistanceSavedMiles)
	}

	for _, rt := range res.Routes {
		s.Broker.Publish(rt.ID, SSEEvent{Type: "route.planned", Data: map[string]any{
			"routeId": rt.ID, "technicianId": rt.TechnicianID, "stops": len(rt.Stops),
			"planDate": rt.PlanDate,
		}})
	}
	s.Pub.Emit(r.Context(), req.TenantID, webhooks.EventRoutesPlanned, map[string]any{
		"batchId": res.BatchID, "planDate": req.PlanDate,
		"routes": len(res.Routes), "unrouted": len(res.Unrouted),
	})
	writeJSON(w, http.StatusOK, res)
}

// RoutesIndexHandler handles GET /v1/routes
func (s *Server) RoutesIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/routes" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	planDate := r.URL.Query().Get("planDate")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListRoutes(r.Context(), tenant, planDate, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List routes failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RouteByIDHandler handles GET/PATCH /v1/routes/{id} plus the /validate,
// /locations and /events/stream subresources.
func (s *Server) RouteByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/routes/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
		s.routeEventsSSE(w, r, id)
		return
	}
	if len(parts) > 1 && parts[1] == "validate" {
		s.routeValidate(w, r, id)
		return
	}
	if len(parts) > 1 && parts[1] == "locations" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, tenant := s.withTenant(r)
		writeJSON(w, http.StatusOK, map[string]any{"items": s.Locations.ListByRoute(tenant, id)})
		return
	}

	switch r.Method {
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		pr := s.getPrincipal(r)
		rt, err := s.Store.GetRoute(r.Context(), tenant, id)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Route not found", err.Error(), r.URL.Path)
			return
		}
		if !pr.CanDispatch() && pr.TechnicianID != rt.TechnicianID {
			writeProblem(w, http.StatusForbidden, "Forbidden", "not your route", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, rt)
	case http.MethodPatch:
		pr := s.getPrincipal(r)
		if !pr.CanDispatch() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
			return
		}
		var patch model.RoutePatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateRoutePatch(patch); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid patch", err.Error(), r.URL.Path)
			return
		}
		_, tenant := s.withTenant(r)
		rt, err := s.Store.PatchRoute(r.Context(), tenant, id, patch)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, store.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeProblem(w, status, "Update route failed", err.Error(), r.URL.Path)
			return
		}
		data := map[string]any{"routeId": rt.ID, "status": rt.Status, "version": rt.Version}
		s.Broker.Publish(id, SSEEvent{Type: webhooks.EventRouteStatusChanged, Data: data})
		s.Pub.Emit(r.Context(), tenant, webhooks.EventRouteStatusChanged, data)
		writeJSON(w, http.StatusOK, rt)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// routeValidate reports advisory violations for a planned route.
func (s *Server) routeValidate(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	rt, err := s.Store.GetRoute(r.Context(), tenant, id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Route not found", err.Error(), r.URL.Path)
		return
	}
	tech, err := s.Store.GetTechnician(r.Context(), tenant, rt.TechnicianID)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Technician not found", err.Error(), r.URL.Path)
		return
	}
	violations := route.ValidateRoute(rt, tech, s.Cfg.Optimizer.MinEfficiencyScore)
	if violations == nil {
		violations = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"routeId":    rt.ID,
		"valid":      len(violations) == 0,
		"violations": violations,
	})
}

// routeEventsSSE streams broker events for one route with heartbeats.
func (s *Server) routeEventsSSE(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pr := s.getPrincipal(r)
	if !pr.CanDispatch() {
		// technicians may stream only their own route
		_, tenant := s.withTenant(r)
		rt, err := s.Store.GetRoute(r.Context(), tenant, id)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Route not found", err.Error(), r.URL.Path)
			return
		}
		if pr.Role != "technician" || pr.TechnicianID == "" || pr.TechnicianID != rt.TechnicianID {
			writeProblem(w, http.StatusForbidden, "Forbidden", "not authorized for route events", r.URL.Path)
			return
		}
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"routeId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			heartbeat()
		}
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			req.TenantID = p.Tenant
		}
		if err := validateSubscriptionRequest(req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeProblem(w, status, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RouteStatsHandler handles GET /v1/admin/route-stats
func (s *Server) RouteStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	stats, err := s.Store.RouteStats(r.Context(), p.Tenant, r.URL.Query().Get("planDate"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Route stats failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// PlanMetricsHandler handles GET /v1/admin/plan-metrics
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plans": route.GetPlanMetrics(p.Tenant, r.URL.Query().Get("planDate")),
	})
}

// WebhookDeliveriesHandler handles GET /v1/admin/webhook-deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	status := r.URL.Query().Get("status")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, status, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler reports readiness plus build metadata.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "build": buildinfo.Info()})
}
