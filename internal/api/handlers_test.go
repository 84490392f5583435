package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("OPTIMIZER_CONFIG", "")
	s, err := NewServer()
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set("X-Tenant-Id", "t_test")
	req.Header.Set("X-Role", "admin")
	return req
}

// seedFleet creates three jobs and one technician through the handlers and
// returns the technician id.
func seedFleet(t *testing.T, s *Server) string {
	t.Helper()
	jobs := []byte(`{"tenantId":"t_test","jobs":[
		{"customerName":"Acme North","location":{"lat":33.4934,"lng":-112.07},"durationMin":45,"priority":"high"},
		{"customerName":"Acme Mid","location":{"lat":33.5079,"lng":-112.07},"durationMin":30},
		{"customerName":"Acme South","location":{"lat":33.5224,"lng":-112.07},"durationMin":60,"scheduledTime":"10:00"}
	]}`)
	rr := httptest.NewRecorder()
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(jobs)))
	req.Header.Set("Content-Type", "application/json")
	s.JobsHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed jobs: %d %s", rr.Code, rr.Body.String())
	}

	techs := []byte(`{"tenantId":"t_test","technicians":[
		{"name":"Dana","startLocation":{"lat":33.45,"lng":-112.07},"workingHours":{"start":"08:00","end":"17:00"}}
	]}`)
	rr = httptest.NewRecorder()
	req = asAdmin(httptest.NewRequest(http.MethodPost, "/v1/technicians", bytes.NewReader(techs)))
	req.Header.Set("Content-Type", "application/json")
	s.TechniciansHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed technicians: %d %s", rr.Code, rr.Body.String())
	}
	var res struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil || len(res.IDs) != 1 {
		t.Fatalf("decode technician ids: %v %s", err, rr.Body.String())
	}
	return res.IDs[0]
}

func optimize(t *testing.T, s *Server) (string, string) {
	t.Helper()
	body := []byte(`{"tenantId":"t_test","planDate":"2026-09-01"}`)
	rr := httptest.NewRecorder()
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/v1/optimize", bytes.NewReader(body)))
	req.Header.Set("Content-Type", "application/json")
	s.OptimizeHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("optimize: %d %s", rr.Code, rr.Body.String())
	}
	var res struct {
		BatchID string `json:"batchId"`
		Routes  []struct {
			ID           string `json:"id"`
			TechnicianID string `json:"technicianId"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode optimize: %v", err)
	}
	if len(res.Routes) == 0 {
		t.Fatalf("no routes planned: %s", rr.Body.String())
	}
	return res.Routes[0].ID, res.Routes[0].TechnicianID
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"build"`)) {
		t.Fatalf("ready missing build info: %s", rr.Body.String())
	}
}

func TestJobsCreateListValidate(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)

	rr := httptest.NewRecorder()
	s.JobsHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/jobs?status=pending&limit=2", nil)))
	if rr.Code != 200 {
		t.Fatalf("jobs list: %d", rr.Code)
	}
	var page struct {
		Items      []map[string]any `json:"items"`
		NextCursor string           `json:"nextCursor"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected paged result, got %d items cursor %q", len(page.Items), page.NextCursor)
	}

	// durationMin <= 0 rejected
	bad := []byte(`{"tenantId":"t_test","jobs":[{"customerName":"Bad","durationMin":0}]}`)
	rr = httptest.NewRecorder()
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/v1/jobs", bytes.NewReader(bad)))
	s.JobsHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad job accepted: %d", rr.Code)
	}
}

func TestOptimizeRequiresDispatcher(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)
	body := []byte(`{"planDate":"2026-09-01"}`)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/optimize", bytes.NewReader(body))
	req.Header.Set("X-Tenant-Id", "t_test")
	req.Header.Set("X-Role", "technician")
	s.OptimizeHandler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("technician could optimize: %d", rr.Code)
	}
}

func TestOptimizeRoutePatchValidate(t *testing.T) {
	s := newTestServer(t)
	techID := seedFleet(t, s)
	rid, gotTech := optimize(t, s)
	if gotTech != techID {
		t.Fatalf("route assigned to %s, want %s", gotTech, techID)
	}

	// get route
	rr := httptest.NewRecorder()
	s.RouteByIDHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/routes/"+rid, nil)))
	if rr.Code != 200 {
		t.Fatalf("get route: %d", rr.Code)
	}
	var rt struct {
		Status string `json:"status"`
		Stops  []any  `json:"stops"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &rt); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	if rt.Status != "planned" || len(rt.Stops) != 3 {
		t.Fatalf("unexpected route: status=%s stops=%d", rt.Status, len(rt.Stops))
	}

	// routes index filters by planDate
	rr = httptest.NewRecorder()
	s.RoutesIndexHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/routes?planDate=2026-09-01", nil)))
	if rr.Code != 200 || !bytes.Contains(rr.Body.Bytes(), []byte(rid)) {
		t.Fatalf("routes index: %d %s", rr.Code, rr.Body.String())
	}

	// patch status
	rr = httptest.NewRecorder()
	req := asAdmin(httptest.NewRequest(http.MethodPatch, "/v1/routes/"+rid, bytes.NewReader([]byte(`{"status":"dispatched"}`))))
	s.RouteByIDHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("patch route: %d %s", rr.Code, rr.Body.String())
	}
	var patched struct {
		Status  string `json:"status"`
		Version int    `json:"version"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &patched)
	if patched.Status != "dispatched" || patched.Version != 2 {
		t.Fatalf("patch result: %+v", patched)
	}

	// bad status rejected
	rr = httptest.NewRecorder()
	req = asAdmin(httptest.NewRequest(http.MethodPatch, "/v1/routes/"+rid, bytes.NewReader([]byte(`{"status":"teleported"}`))))
	s.RouteByIDHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad status accepted: %d", rr.Code)
	}

	// validate endpoint
	rr = httptest.NewRecorder()
	s.RouteByIDHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/routes/"+rid+"/validate", nil)))
	if rr.Code != 200 {
		t.Fatalf("validate: %d %s", rr.Code, rr.Body.String())
	}
	var vr struct {
		Valid      bool     `json:"valid"`
		Violations []string `json:"violations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &vr); err != nil {
		t.Fatalf("decode validate: %v", err)
	}
	if !vr.Valid && len(vr.Violations) == 0 {
		t.Fatalf("invalid route with no violations: %s", rr.Body.String())
	}

	// technician routes listing
	rr = httptest.NewRecorder()
	s.TechnicianByIDHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/technicians/"+techID+"/routes", nil)))
	if rr.Code != 200 || !bytes.Contains(rr.Body.Bytes(), []byte(rid)) {
		t.Fatalf("technician routes: %d %s", rr.Code, rr.Body.String())
	}
}

func TestJobClusters(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)
	body := []byte(`{"tenantId":"t_test","radiusMiles":2}`)
	rr := httptest.NewRecorder()
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/v1/jobs/clusters", bytes.NewReader(body)))
	s.JobClustersHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("clusters: %d %s", rr.Code, rr.Body.String())
	}
	var res struct {
		RadiusMiles float64 `json:"radiusMiles"`
		Groups      [][]any `json:"groups"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode clusters: %v", err)
	}
	if res.RadiusMiles != 2 {
		t.Fatalf("radius: %v", res.RadiusMiles)
	}
}

func TestTechnicianLocationFlow(t *testing.T) {
	s := newTestServer(t)
	techID := seedFleet(t, s)
	rid, _ := optimize(t, s)

	// another technician may not report for this one
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/technicians/"+techID+"/location",
		bytes.NewReader([]byte(`{"routeId":"`+rid+`","lat":33.5,"lng":-112.07}`)))
	req.Header.Set("X-Tenant-Id", "t_test")
	req.Header.Set("X-Role", "technician")
	req.Header.Set("X-Technician-Id", "someone_else")
	s.TechnicianByIDHandler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cross-technician report allowed: %d", rr.Code)
	}

	// the assigned technician reports
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/technicians/"+techID+"/location",
		bytes.NewReader([]byte(`{"routeId":"`+rid+`","lat":33.5,"lng":-112.07}`)))
	req.Header.Set("X-Tenant-Id", "t_test")
	req.Header.Set("X-Role", "technician")
	req.Header.Set("X-Technician-Id", techID)
	s.TechnicianByIDHandler(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("location report: %d %s", rr.Code, rr.Body.String())
	}

	// route locations reflect the report
	rr = httptest.NewRecorder()
	s.RouteByIDHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/routes/"+rid+"/locations", nil)))
	if rr.Code != 200 || !bytes.Contains(rr.Body.Bytes(), []byte(techID)) {
		t.Fatalf("route locations: %d %s", rr.Code, rr.Body.String())
	}
}

func TestImportJobsCSV(t *testing.T) {
	s := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "jobs.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("externalRef,customerName,address,lat,lng,durationMin,scheduledTime,priority\n" +
		"J-1,Globex,12 Main St,33.49,-112.07,45,,high\n" +
		"J-2,Initech,99 Elm St,33.51,-112.08,30,10:30,\n"))
	mw.Close()

	rr := httptest.NewRecorder()
	req := asAdmin(httptest.NewRequest(http.MethodPost, "/v1/imports/jobs", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.ImportJobsHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("import: %d %s", rr.Code, rr.Body.String())
	}
	var res struct {
		Created int    `json:"created"`
		Source  string `json:"source"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &res)
	if res.Created != 2 || res.Source != "csv" {
		t.Fatalf("import result: %+v", res)
	}

	// unsupported extension rejected
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, _ = mw.CreateFormFile("file", "jobs.pdf")
	fw.Write([]byte("nope"))
	mw.Close()
	rr = httptest.NewRecorder()
	req = asAdmin(httptest.NewRequest(http.MethodPost, "/v1/imports/jobs", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.ImportJobsHandler(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("pdf accepted: %d", rr.Code)
	}
}

func TestSubscriptionsAndDeliveries(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)

	// non-admin denied
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/subscriptions", nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	req.Header.Set("X-Role", "dispatcher")
	s.SubscriptionsHandler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("dispatcher listed subscriptions: %d", rr.Code)
	}

	subBody := []byte(`{"tenantId":"t_test","url":"https://example.invalid/webhook","events":["routes.planned"],"secret":"shh"}`)
	rr = httptest.NewRecorder()
	req = asAdmin(httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader(subBody)))
	s.SubscriptionsHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create sub: %d %s", rr.Code, rr.Body.String())
	}
	var sub struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &sub)

	optimize(t, s)

	// a routes.planned delivery is queued
	rr = httptest.NewRecorder()
	s.WebhookDeliveriesHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/admin/webhook-deliveries?limit=5", nil)))
	if rr.Code != 200 {
		t.Fatalf("deliveries: %d", rr.Code)
	}
	var dres struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &dres); err != nil {
		t.Fatalf("decode deliveries: %v", err)
	}
	if len(dres.Items) == 0 {
		t.Fatalf("expected at least one delivery")
	}

	// delete subscription
	rr = httptest.NewRecorder()
	s.SubscriptionByIDHandler(rr, asAdmin(httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil)))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete sub: %d", rr.Code)
	}
}

func TestAdminStats(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)
	optimize(t, s)

	rr := httptest.NewRecorder()
	s.RouteStatsHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/admin/route-stats?planDate=2026-09-01", nil)))
	if rr.Code != 200 {
		t.Fatalf("route stats: %d", rr.Code)
	}
	var stats map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["routes"].(float64) != 1 {
		t.Fatalf("stats routes: %+v", stats)
	}

	rr = httptest.NewRecorder()
	s.PlanMetricsHandler(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/v1/admin/plan-metrics?planDate=2026-09-01", nil)))
	if rr.Code != 200 || !bytes.Contains(rr.Body.Bytes(), []byte(`"plans"`)) {
		t.Fatalf("plan metrics: %d %s", rr.Code, rr.Body.String())
	}
}

// sseRecorder is a minimal ResponseWriter that implements http.Flusher
// and captures writes for SSE tests.
type sseRecorder struct {
	hdr  http.Header
	buf  bytes.Buffer
	code int
}

func (r *sseRecorder) Header() http.Header {
	if r.hdr == nil {
		r.hdr = http.Header{}
	}
	return r.hdr
}
func (r *sseRecorder) WriteHeader(c int)           { r.code = c }
func (r *sseRecorder) Write(p []byte) (int, error) { return r.buf.Write(p) }
func (r *sseRecorder) Flush()                      {}

func TestRouteEventsSSE(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)
	rid, _ := optimize(t, s)

	sseReq := asAdmin(httptest.NewRequest(http.MethodGet, "/v1/routes/"+rid+"/events/stream", nil))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sseReq = sseReq.WithContext(ctx)

	rec := &sseRecorder{}
	done := make(chan struct{})
	go func() {
		s.RouteByIDHandler(rec, sseReq)
		close(done)
	}()

	// Give the handler time to subscribe and write the first heartbeat.
	time.Sleep(50 * time.Millisecond)
	s.Broker.Publish(rid, SSEEvent{Type: "route.status.changed", Data: map[string]any{"routeId": rid}})

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if bytes.Contains(rec.buf.Bytes(), []byte("event: route.status.changed")) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !bytes.Contains(rec.buf.Bytes(), []byte("event: route.status.changed")) {
		t.Fatalf("SSE did not contain expected event. Body: %s", rec.buf.String())
	}
	cancel()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("handler did not exit after cancel")
	}
}
