package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldroute/internal/model"
)

func seedTenant(t *testing.T, m *Memory, tenant string) (jobIDs, techIDs []string) {
	t.Helper()
	ctx := context.Background()
	jobIDs, err := m.CreateJobs(ctx, tenant, []model.JobIn{
		{CustomerName: "Alvarez HVAC", Location: &model.GeoPoint{Lat: 33.4934, Lng: -112.07}, DurationMin: 30},
		{CustomerName: "Bridger Pools", Location: &model.GeoPoint{Lat: 33.5079, Lng: -112.07}, DurationMin: 60},
		{CustomerName: "Cortez Solar", Location: &model.GeoPoint{Lat: 33.5224, Lng: -112.07}, DurationMin: 45},
	})
	if err != nil {
		t.Fatalf("create jobs: %v", err)
	}
	techIDs, err = m.CreateTechnicians(ctx, tenant, []model.TechnicianIn{
		{
			Name:          "Dana",
			StartLocation: &model.GeoPoint{Lat: 33.45, Lng: -112.07},
			WorkingHours:  model.TimeWindow{Start: "08:00", End: "17:00"},
		},
	})
	if err != nil {
		t.Fatalf("create technicians: %v", err)
	}
	return jobIDs, techIDs
}

func TestMemoryJobLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	jobIDs, _ := seedTenant(t, m, "t1")

	jobs, next, err := m.ListJobs(ctx, "t1", "", "", 2)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 || next == "" {
		t.Fatalf("expected first page of 2 with cursor, got %d next=%q", len(jobs), next)
	}
	rest, next2, err := m.ListJobs(ctx, "t1", "", next, 2)
	if err != nil {
		t.Fatalf("list jobs page 2: %v", err)
	}
	if len(rest) != 1 || next2 != "" {
		t.Fatalf("expected final page of 1, got %d next=%q", len(rest), next2)
	}
	if jobs[0].Status != "pending" {
		t.Fatalf("new jobs must start pending, got %q", jobs[0].Status)
	}

	got, err := m.GetJobs(ctx, "t1", jobIDs[:2])
	if err != nil || len(got) != 2 {
		t.Fatalf("get jobs: %v (%d)", err, len(got))
	}
	if _, err := m.GetJobs(ctx, "other-tenant", jobIDs[:1]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant get must be not found, got %v", err)
	}
}

func TestMemoryPlanRoutesPersistsAndAssigns(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_, techIDs := seedTenant(t, m, "t1")

	res, err := m.PlanRoutes(ctx, model.OptimizeRequest{TenantID: "t1", PlanDate: "2026-03-02"})
	if err != nil {
		t.Fatalf("plan routes: %v", err)
	}
	if res.BatchID == "" || len(res.Routes) != 1 {
		t.Fatalf("expected one planned route with a batch id, got %+v", res)
	}
	rt := res.Routes[0]
	if rt.ID == "" || rt.Version != 1 || rt.TechnicianID != techIDs[0] {
		t.Fatalf("route header wrong: %+v", rt)
	}

	stored, err := m.GetRoute(ctx, "t1", rt.ID)
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if len(stored.Stops) != 3 {
		t.Fatalf("expected 3 stops persisted, got %d", len(stored.Stops))
	}

	pending, _, err := m.ListJobs(ctx, "t1", "pending", "", 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("planned jobs must flip to assigned, %d still pending", len(pending))
	}

	// A second run has nothing left to plan.
	res2, err := m.PlanRoutes(ctx, model.OptimizeRequest{TenantID: "t1", PlanDate: "2026-03-02"})
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if len(res2.Routes) != 0 {
		t.Fatalf("replan over assigned jobs must produce no routes, got %d", len(res2.Routes))
	}

	byTech, err := m.ListRoutesForTechnician(ctx, "t1", techIDs[0])
	if err != nil || len(byTech) != 1 {
		t.Fatalf("routes by technician: %v (%d)", err, len(byTech))
	}
}

func TestMemoryPlanRoutesValidation(t *testing.T) {
	m := NewMemory()
	if _, err := m.PlanRoutes(context.Background(), model.OptimizeRequest{TenantID: "t1"}); err == nil {
		t.Fatal("missing planDate must be rejected")
	}
	if _, err := m.PlanRoutes(context.Background(), model.OptimizeRequest{PlanDate: "2026-03-02"}); err == nil {
		t.Fatal("missing tenantId must be rejected")
	}
}

func TestMemoryPatchRoute(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedTenant(t, m, "t1")
	res, err := m.PlanRoutes(ctx, model.OptimizeRequest{TenantID: "t1", PlanDate: "2026-03-02"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	id := res.Routes[0].ID

	patched, err := m.PatchRoute(ctx, "t1", id, model.RoutePatch{Status: "dispatched"})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if patched.Status != "dispatched" || patched.Version != 2 {
		t.Fatalf("patch must set status and bump version, got %+v", patched)
	}
	if _, err := m.PatchRoute(ctx, "t1", "nope", model.RoutePatch{Status: "canceled"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown route must be not found, got %v", err)
	}
	if _, err := m.PatchRoute(ctx, "t2", id, model.RoutePatch{Status: "canceled"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant patch must be not found, got %v", err)
	}
}

func TestMemorySubscriptions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.CreateSubscription(ctx, model.SubscriptionRequest{
		TenantID: "t1", URL: "https://hooks.example.com/r", Events: []string{"routes.planned"}, Secret: "s3cr3t",
	})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	hits, err := m.GetSubscriptionsForEvent(ctx, "t1", "routes.planned")
	if err != nil || len(hits) != 1 {
		t.Fatalf("expected one matching subscription, got %v (%d)", err, len(hits))
	}
	if miss, _ := m.GetSubscriptionsForEvent(ctx, "t1", "route.status.changed"); len(miss) != 0 {
		t.Fatalf("non-subscribed event must not match, got %d", len(miss))
	}

	if err := m.DeleteSubscription(ctx, "t1", sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.DeleteSubscription(ctx, "t1", sub.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete must be not found, got %v", err)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "t1", "sub1", "routes.planned", "https://hooks.example.com/r", "s", []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("freshly enqueued delivery must be due: %v %+v", err, due)
	}

	// A failed attempt rescheduled into the future is no longer due.
	later := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &later, "connection refused", 0, 12); err != nil {
		t.Fatalf("mark retry: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("rescheduled delivery must not be due, got %d", len(due))
	}

	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 34); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	rows, _, err := m.ListWebhookDeliveries(ctx, "t1", "delivered", "", 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one delivered row, got %v (%d)", err, len(rows))
	}
	if rows[0]["attempts"] != 2 || rows[0]["responseCode"] != 200 {
		t.Fatalf("delivery row wrong: %+v", rows[0])
	}

	id2, _ := m.EnqueueWebhook(ctx, "t1", "sub1", "routes.planned", "https://hooks.example.com/r", "s", nil)
	if err := m.FailWebhookDelivery(ctx, id2, "410 gone", 410, 20); err != nil {
		t.Fatalf("fail: %v", err)
	}
	failed, _, _ := m.ListWebhookDeliveries(ctx, "t1", "failed", "", 10)
	if len(failed) != 1 {
		t.Fatalf("expected one failed row, got %d", len(failed))
	}
}

func TestMemoryRouteStats(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedTenant(t, m, "t1")
	if _, err := m.PlanRoutes(ctx, model.OptimizeRequest{TenantID: "t1", PlanDate: "2026-03-02"}); err != nil {
		t.Fatalf("plan: %v", err)
	}

	stats, err := m.RouteStats(ctx, "t1", "2026-03-02")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["routes"] != 1 || stats["stops"] != 3 {
		t.Fatalf("stats wrong: %+v", stats)
	}
	if _, ok := stats["avgEfficiencyScore"]; !ok {
		t.Fatalf("expected avg efficiency in stats: %+v", stats)
	}

	empty, err := m.RouteStats(ctx, "t1", "2099-01-01")
	if err != nil {
		t.Fatalf("stats other date: %v", err)
	}
	if empty["routes"] != 0 {
		t.Fatalf("wrong-date stats must be empty, got %+v", empty)
	}
	if _, ok := empty["avgEfficiencyScore"]; ok {
		t.Fatalf("empty stats must omit average: %+v", empty)
	}
}
