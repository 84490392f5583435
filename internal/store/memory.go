package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldroute/internal/model"
)

// Memory is a mutex-guarded in-memory store, the default when neither
// DATABASE_URL nor SQLITE_PATH is configured. Useful for dev and tests.
type Memory struct {
	mu         sync.Mutex
	jobs       map[string]model.Job
	jobsByTen  map[string][]string
	techs      map[string]model.Technician
	techsByTen map[string][]string
	routes     map[string]model.OptimizedRoute
	routesByTen map[string][]string
	subs       map[string][]model.Subscription
	deliveries map[string]*memDelivery
	delivByTen map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		jobs:        map[string]model.Job{},
		jobsByTen:   map[string][]string{},
		techs:       map[string]model.Technician{},
		techsByTen:  map[string][]string{},
		routes:      map[string]model.OptimizedRoute{},
		routesByTen: map[string][]string{},
		subs:        map[string][]model.Subscription{},
		deliveries:  map[string]*memDelivery{},
		delivByTen:  map[string][]string{},
	}
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func (m *Memory) CreateJobs(ctx context.Context, tenantID string, jobs []model.JobIn) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(jobs))
	for _, in := range jobs {
		id := uuid.New().String()
		m.jobs[id] = model.Job{
			ID:            id,
			TenantID:      tenantID,
			ExternalRef:   in.ExternalRef,
			CustomerName:  in.CustomerName,
			Address:       in.Address,
			Location:      in.Location,
			DurationMin:   in.DurationMin,
			ScheduledTime: in.ScheduledTime,
			Priority:      in.Priority,
			TimeWindow:    in.TimeWindow,
			Status:        "pending",
		}
		m.jobsByTen[tenantID] = append(m.jobsByTen[tenantID], id)
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) ListJobs(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Job, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.jobsByTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.Job{}
	next := ""
	for i := start; i < len(ids); i++ {
		j := m.jobs[ids[i]]
		if status != "" && j.Status != status {
			continue
		}
		out = append(out, j)
		if len(out) >= limit {
			if i+1 < len(ids) {
				next = ids[i]
			}
			break
		}
	}
	return out, next, nil
}

func (m *Memory) GetJobs(ctx context.Context, tenantID string, ids []string) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Job, 0, len(ids))
	for _, id := range ids {
		j, ok := m.jobs[id]
		if !ok || j.TenantID != tenantID {
			return nil, ErrNotFound
		}
		out = append(out, j)
	}
	return out, nil
}

func (m *Memory) CreateTechnicians(ctx context.Context, tenantID string, techs []model.TechnicianIn) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(techs))
	for _, in := range techs {
		id := uuid.New().String()
		m.techs[id] = model.Technician{
			ID:            id,
			TenantID:      tenantID,
			Name:          in.Name,
			StartAddress:  in.StartAddress,
			StartLocation: in.StartLocation,
			EndLocation:   in.EndLocation,
			WorkingHours:  in.WorkingHours,
			Skills:        in.Skills,
			MaxJobs:       in.MaxJobs,
			Active:        true,
		}
		m.techsByTen[tenantID] = append(m.techsByTen[tenantID], id)
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) ListTechnicians(ctx context.Context, tenantID, cursor string, limit int) ([]model.Technician, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.techsByTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.Technician{}
	next := ""
	for i := start; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.techs[ids[i]])
		if len(out) >= limit && i+1 < len(ids) {
			next = ids[i]
		}
	}
	return out, next, nil
}

func (m *Memory) GetTechnician(ctx context.Context, tenantID, id string) (model.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.techs[id]
	if !ok || t.TenantID != tenantID {
		return model.Technician{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) PlanRoutes(ctx context.Context, req model.OptimizeRequest) (model.PlanResult, error) {
	if err := validatePlanRequest(req); err != nil {
		return model.PlanResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]model.Job, 0)
	for _, id := range m.jobsByTen[req.TenantID] {
		if j := m.jobs[id]; j.Status == "pending" {
			jobs = append(jobs, j)
		}
	}
	techs := make([]model.Technician, 0)
	for _, id := range m.techsByTen[req.TenantID] {
		if t := m.techs[id]; t.Active {
			techs = append(techs, t)
		}
	}
	techs = rosterFilter(techs, req.TechnicianIDs)

	plan := buildPlan(jobs, techs, req)

	batchID := "batch_" + uuid.New().String()
	for i := range plan.Routes {
		rt := plan.Routes[i]
		rt.ID = uuid.New().String()
		rt.Version = 1
		for _, stop := range rt.Stops {
			j := m.jobs[stop.JobID]
			j.Status = "assigned"
			m.jobs[stop.JobID] = j
		}
		m.routes[rt.ID] = rt
		m.routesByTen[req.TenantID] = append(m.routesByTen[req.TenantID], rt.ID)
		plan.Routes[i] = rt
	}
	return model.PlanResult{BatchID: batchID, Routes: plan.Routes, Unrouted: plan.Unrouted}, nil
}

func (m *Memory) GetRoute(ctx context.Context, tenantID, routeID string) (model.OptimizedRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok || r.TenantID != tenantID {
		return model.OptimizedRoute{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListRoutes(ctx context.Context, tenantID, planDate, cursor string, limit int) ([]model.OptimizedRoute, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.routesByTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.OptimizedRoute{}
	next := ""
	for i := start; i < len(ids); i++ {
		r := m.routes[ids[i]]
		if planDate != "" && r.PlanDate != planDate {
			continue
		}
		out = append(out, r)
		if len(out) >= limit {
			if i+1 < len(ids) {
				next = ids[i]
			}
			break
		}
	}
	return out, next, nil
}

func (m *Memory) PatchRoute(ctx context.Context, tenantID, routeID string, patch model.RoutePatch) (model.OptimizedRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok || r.TenantID != tenantID {
		return model.OptimizedRoute{}, ErrNotFound
	}
	if patch.Status != "" {
		r.Status = patch.Status
	}
	r.Version++
	m.routes[routeID] = r
	return r, nil
}

func (m *Memory) ListRoutesForTechnician(ctx context.Context, tenantID, technicianID string) ([]model.OptimizedRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.OptimizedRoute{}
	for _, id := range m.routesByTen[tenantID] {
		if r := m.routes[id]; r.TechnicianID == technicianID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[tenantID] {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[tenantID]
	start := 0
	if cursor != "" {
		for i := range list {
			if list[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	items := append([]model.Subscription(nil), list[start:end]...)
	next := ""
	if end < len(list) {
		next = list[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	arr := m.subs[tenantID]
	for i := range arr {
		if arr[i].ID == id {
			m.subs[tenantID] = append(arr[:i], arr[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
			EventType: eventType, URL: url, Secret: secret, Payload: payload,
			Status: "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.delivByTen[tenantID] = append(m.delivByTen[tenantID], id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now()
	due := []WebhookDelivery{}
	for _, d := range m.deliveries {
		if d.Status == "pending" && !d.NextAttemptAt.After(now) {
			due = append(due, d.WebhookDelivery)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].ID < due[k].ID })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.delivByTen[tenantID]
	start := cursorIndex(ids, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []map[string]any{}
	next := ""
	for i := start; i < len(ids); i++ {
		d := m.deliveries[ids[i]]
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, map[string]any{
			"id": d.ID, "eventType": d.EventType, "url": d.URL,
			"status": d.Status, "attempts": d.Attempts,
			"responseCode": d.ResponseCode, "latencyMs": d.LatencyMs,
			"lastError": d.LastError,
		})
		if len(out) >= limit {
			if i+1 < len(ids) {
				next = ids[i]
			}
			break
		}
	}
	return out, next, nil
}

func (m *Memory) RouteStats(ctx context.Context, tenantID, planDate string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	routes := 0
	stops := 0
	distance := 0.0
	travel := 0
	effSum := 0
	for _, id := range m.routesByTen[tenantID] {
		r := m.routes[id]
		if planDate != "" && r.PlanDate != planDate {
			continue
		}
		routes++
		stops += len(r.Stops)
		distance += r.TotalDistanceMiles
		travel += r.TotalTravelTimeMin
		effSum += r.EfficiencyScore
	}
	stats := map[string]any{
		"routes": routes, "stops": stops,
		"totalDistanceMiles": distance, "totalTravelTimeMin": travel,
	}
	if routes > 0 {
		stats["avgEfficiencyScore"] = effSum / routes
	}
	return stats, nil
}

// cursorIndex resolves an opaque cursor (the last id of the previous page)
// to the index after it.
func cursorIndex(ids []string, cursor string) int {
	if cursor == "" {
		return 0
	}
	for i, id := range ids {
		if id == cursor {
			return i + 1
		}
	}
	return 0
}
