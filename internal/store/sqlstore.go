package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldroute/internal/model"
)

// sqlStore implements Store against any database/sql backend that accepts
// $N placeholders; Postgres and SQLite both wrap it. Stops, skills and event
// lists are stored as JSON; listing uses id-keyed keyset cursors. Timestamps
// are bound through the dialect so text-typed SQLite columns compare the same
// way as timestamptz.
type sqlStore struct {
	db       *sql.DB
	bindTime func(time.Time) any
}

func (s *sqlStore) ensureSchema(ctx context.Context, jsonType, tsType string) error {
	for _, stmt := range schemaStatements(jsonType, tsType) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(jsonType, tsType string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			external_ref TEXT,
			customer_name TEXT,
			address TEXT,
			lat DOUBLE PRECISION,
			lng DOUBLE PRECISION,
			duration_min INTEGER NOT NULL,
			scheduled_time TEXT,
			priority TEXT,
			window_start TEXT,
			window_end TEXT,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_tenant_idx ON jobs (tenant_id, id)`,
		`CREATE TABLE IF NOT EXISTS technicians (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			start_address TEXT,
			start_lat DOUBLE PRECISION,
			start_lng DOUBLE PRECISION,
			work_start TEXT NOT NULL,
			work_end TEXT NOT NULL,
			skills ` + jsonType + `,
			max_jobs INTEGER,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS technicians_tenant_idx ON technicians (tenant_id, id)`,
		`CREATE TABLE IF NOT EXISTS routes (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			technician_id TEXT NOT NULL,
			plan_date TEXT,
			status TEXT NOT NULL,
			version INTEGER NOT NULL,
			stops ` + jsonType + ` NOT NULL,
			stop_count INTEGER NOT NULL DEFAULT 0,
			total_distance_miles DOUBLE PRECISION NOT NULL,
			total_duration_min INTEGER NOT NULL,
			total_travel_min INTEGER NOT NULL,
			efficiency_score INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS routes_tenant_idx ON routes (tenant_id, id)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			url TEXT NOT NULL,
			events ` + jsonType + ` NOT NULL,
			secret TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			subscription_id TEXT,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT,
			payload ` + jsonType + ` NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			next_attempt_at ` + tsType + `,
			last_error TEXT,
			response_code INTEGER,
			latency_ms INTEGER
		)`,
	}
}

func (s *sqlStore) CreateJobs(ctx context.Context, tenantID string, jobs []model.JobIn) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(jobs))
	for _, in := range jobs {
		id := uuid.New().String()
		var lat, lng any
		if in.Location != nil {
			lat, lng = in.Location.Lat, in.Location.Lng
		}
		var ws, we any
		if in.TimeWindow != nil {
			ws, we = in.TimeWindow.Start, in.TimeWindow.End
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO jobs
			(id, tenant_id, external_ref, customer_name, address, lat, lng, duration_min, scheduled_time, priority, window_start, window_end, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,'pending')`,
			id, tenantID, nullIfEmpty(in.ExternalRef), nullIfEmpty(in.CustomerName), nullIfEmpty(in.Address),
			lat, lng, in.DurationMin, nullIfEmpty(in.ScheduledTime), nullIfEmpty(in.Priority), ws, we)
		if err != nil {
			return nil, fmt.Errorf("insert job: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *sqlStore) ListJobs(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Job, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, external_ref, customer_name, address, lat, lng, duration_min, scheduled_time, priority, window_start, window_end, status
		FROM jobs WHERE tenant_id=$1 AND id > $2`
	args := []any{tenantID, cursor}
	if status != "" {
		q += ` AND status=$3 ORDER BY id LIMIT $4`
		args = append(args, status, limit)
	} else {
		q += ` ORDER BY id LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := []model.Job{}
	for rows.Next() {
		j, err := scanJob(rows, tenantID)
		if err != nil {
			return nil, "", err
		}
		out = append(out, j)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanJob(r rowScanner, tenantID string) (model.Job, error) {
	var j model.Job
	var ref, name, addr, sched, prio, ws, we sql.NullString
	var lat, lng sql.NullFloat64
	if err := r.Scan(&j.ID, &ref, &name, &addr, &lat, &lng, &j.DurationMin, &sched, &prio, &ws, &we, &j.Status); err != nil {
		return model.Job{}, err
	}
	j.TenantID = tenantID
	j.ExternalRef = ref.String
	j.CustomerName = name.String
	j.Address = addr.String
	j.ScheduledTime = sched.String
	j.Priority = prio.String
	if lat.Valid && lng.Valid {
		j.Location = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if ws.Valid && we.Valid {
		j.TimeWindow = &model.TimeWindow{Start: ws.String, End: we.String}
	}
	return j, nil
}

func (s *sqlStore) GetJobs(ctx context.Context, tenantID string, ids []string) ([]model.Job, error) {
	out := make([]model.Job, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx, `SELECT id, external_ref, customer_name, address, lat, lng, duration_min, scheduled_time, priority, window_start, window_end, status
			FROM jobs WHERE tenant_id=$1 AND id=$2`, tenantID, id)
		j, err := scanJob(row, tenantID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *sqlStore) CreateTechnicians(ctx context.Context, tenantID string, techs []model.TechnicianIn) ([]string, error) {
	ids := make([]string, 0, len(techs))
	for _, in := range techs {
		id := uuid.New().String()
		var lat, lng any
		if in.StartLocation != nil {
			lat, lng = in.StartLocation.Lat, in.StartLocation.Lng
		}
		_, err := s.db.ExecContext(ctx, `INSERT INTO technicians
			(id, tenant_id, name, start_address, start_lat, start_lng, work_start, work_end, skills, max_jobs, active)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,TRUE)`,
			id, tenantID, in.Name, nullIfEmpty(in.StartAddress), lat, lng,
			in.WorkingHours.Start, in.WorkingHours.End, toJSON(in.Skills), in.MaxJobs)
		if err != nil {
			return nil, fmt.Errorf("insert technician: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *sqlStore) ListTechnicians(ctx context.Context, tenantID, cursor string, limit int) ([]model.Technician, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, start_address, start_lat, start_lng, work_start, work_end, skills, max_jobs, active
		FROM technicians WHERE tenant_id=$1 AND id > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := []model.Technician{}
	for rows.Next() {
		t, err := scanTechnician(rows, tenantID)
		if err != nil {
			return nil, "", err
		}
		out = append(out, t)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func scanTechnician(r rowScanner, tenantID string) (model.Technician, error) {
	var t model.Technician
	var addr sql.NullString
	var lat, lng sql.NullFloat64
	var skills []byte
	var maxJobs sql.NullInt64
	if err := r.Scan(&t.ID, &t.Name, &addr, &lat, &lng, &t.WorkingHours.Start, &t.WorkingHours.End, &skills, &maxJobs, &t.Active); err != nil {
		return model.Technician{}, err
	}
	t.TenantID = tenantID
	t.StartAddress = addr.String
	if lat.Valid && lng.Valid {
		t.StartLocation = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if len(skills) > 0 {
		_ = json.Unmarshal(skills, &t.Skills)
	}
	t.MaxJobs = int(maxJobs.Int64)
	return t, nil
}

func (s *sqlStore) GetTechnician(ctx context.Context, tenantID, id string) (model.Technician, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, start_address, start_lat, start_lng, work_start, work_end, skills, max_jobs, active
		FROM technicians WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	t, err := scanTechnician(row, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Technician{}, ErrNotFound
	}
	return t, err
}

func (s *sqlStore) PlanRoutes(ctx context.Context, req model.OptimizeRequest) (model.PlanResult, error) {
	if err := validatePlanRequest(req); err != nil {
		return model.PlanResult{}, err
	}
	jobs, err := s.allJobs(ctx, req.TenantID, "pending")
	if err != nil {
		return model.PlanResult{}, err
	}
	techs, err := s.allTechnicians(ctx, req.TenantID)
	if err != nil {
		return model.PlanResult{}, err
	}
	techs = rosterFilter(techs, req.TechnicianIDs)

	plan := buildPlan(jobs, techs, req)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.PlanResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	batchID := "batch_" + uuid.New().String()
	for i := range plan.Routes {
		rt := plan.Routes[i]
		rt.ID = uuid.New().String()
		rt.Version = 1
		_, err = tx.ExecContext(ctx, `INSERT INTO routes
			(id, tenant_id, technician_id, plan_date, status, version, stops, stop_count, total_distance_miles, total_duration_min, total_travel_min, efficiency_score)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			rt.ID, req.TenantID, rt.TechnicianID, rt.PlanDate, rt.Status, rt.Version,
			toJSON(rt.Stops), len(rt.Stops), rt.TotalDistanceMiles, rt.TotalDurationMin, rt.TotalTravelTimeMin, rt.EfficiencyScore)
		if err != nil {
			return model.PlanResult{}, fmt.Errorf("insert route: %w", err)
		}
		for _, stop := range rt.Stops {
			if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status='assigned' WHERE id=$1`, stop.JobID); err != nil {
				return model.PlanResult{}, err
			}
		}
		plan.Routes[i] = rt
	}
	if err := tx.Commit(); err != nil {
		return model.PlanResult{}, err
	}
	return model.PlanResult{BatchID: batchID, Routes: plan.Routes, Unrouted: plan.Unrouted}, nil
}

func (s *sqlStore) allJobs(ctx context.Context, tenantID, status string) ([]model.Job, error) {
	var out []model.Job
	cursor := ""
	for {
		page, next, err := s.ListJobs(ctx, tenantID, status, cursor, 500)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

func (s *sqlStore) allTechnicians(ctx context.Context, tenantID string) ([]model.Technician, error) {
	var out []model.Technician
	cursor := ""
	for {
		page, next, err := s.ListTechnicians(ctx, tenantID, cursor, 500)
		if err != nil {
			return nil, err
		}
		for _, t := range page {
			if t.Active {
				out = append(out, t)
			}
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

func (s *sqlStore) GetRoute(ctx context.Context, tenantID, routeID string) (model.OptimizedRoute, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, technician_id, plan_date, status, version, stops, total_distance_miles, total_duration_min, total_travel_min, efficiency_score
		FROM routes WHERE tenant_id=$1 AND id=$2`, tenantID, routeID)
	rt, err := scanRoute(row, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OptimizedRoute{}, ErrNotFound
	}
	return rt, err
}

func scanRoute(r rowScanner, tenantID string) (model.OptimizedRoute, error) {
	var rt model.OptimizedRoute
	var planDate sql.NullString
	var stops []byte
	if err := r.Scan(&rt.ID, &rt.TechnicianID, &planDate, &rt.Status, &rt.Version, &stops,
		&rt.TotalDistanceMiles, &rt.TotalDurationMin, &rt.TotalTravelTimeMin, &rt.EfficiencyScore); err != nil {
		return model.OptimizedRoute{}, err
	}
	rt.TenantID = tenantID
	rt.PlanDate = planDate.String
	if len(stops) > 0 {
		_ = json.Unmarshal(stops, &rt.Stops)
	}
	return rt, nil
}

func (s *sqlStore) ListRoutes(ctx context.Context, tenantID, planDate, cursor string, limit int) ([]model.OptimizedRoute, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, technician_id, plan_date, status, version, stops, total_distance_miles, total_duration_min, total_travel_min, efficiency_score
		FROM routes WHERE tenant_id=$1 AND id > $2`
	args := []any{tenantID, cursor}
	if planDate != "" {
		q += ` AND plan_date=$3 ORDER BY id LIMIT $4`
		args = append(args, planDate, limit)
	} else {
		q += ` ORDER BY id LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := []model.OptimizedRoute{}
	for rows.Next() {
		rt, err := scanRoute(rows, tenantID)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rt)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (s *sqlStore) PatchRoute(ctx context.Context, tenantID, routeID string, patch model.RoutePatch) (model.OptimizedRoute, error) {
	if patch.Status != "" {
		res, err := s.db.ExecContext(ctx, `UPDATE routes SET status=$1, version=version+1 WHERE tenant_id=$2 AND id=$3`,
			patch.Status, tenantID, routeID)
		if err != nil {
			return model.OptimizedRoute{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.OptimizedRoute{}, ErrNotFound
		}
	}
	return s.GetRoute(ctx, tenantID, routeID)
}

func (s *sqlStore) ListRoutesForTechnician(ctx context.Context, tenantID, technicianID string) ([]model.OptimizedRoute, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, technician_id, plan_date, status, version, stops, total_distance_miles, total_duration_min, total_travel_min, efficiency_score
		FROM routes WHERE tenant_id=$1 AND technician_id=$2 ORDER BY id`, tenantID, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OptimizedRoute{}
	for rows.Next() {
		rt, err := scanRoute(rows, tenantID)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (s *sqlStore) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	sub := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	_, err := s.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.TenantID, sub.URL, toJSON(sub.Events), sub.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

func (s *sqlStore) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	subs, _, err := s.ListSubscriptions(ctx, tenantID, "", 500)
	if err != nil {
		return nil, err
	}
	var out []model.Subscription
	for _, sub := range subs {
		for _, e := range sub.Events {
			if e == eventType {
				out = append(out, sub)
				break
			}
		}
	}
	return out, nil
}

func (s *sqlStore) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, url, events, secret FROM subscriptions WHERE tenant_id=$1 AND id > $2 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var sub model.Subscription
		var events []byte
		var secret sql.NullString
		if err := rows.Scan(&sub.ID, &sub.URL, &events, &secret); err != nil {
			return nil, "", err
		}
		sub.TenantID = tenantID
		sub.Secret = secret.String
		_ = json.Unmarshal(events, &sub.Events)
		out = append(out, sub)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (s *sqlStore) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `INSERT INTO webhook_deliveries
		(id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,$8)`,
		id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, s.bindTime(time.Now()))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *sqlStore) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts
		FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= $1 ORDER BY next_attempt_at LIMIT $2`,
		s.bindTime(time.Now()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		var sub, secret sql.NullString
		if err := rows.Scan(&d.ID, &d.TenantID, &sub, &d.EventType, &d.URL, &secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		d.SubscriptionID = sub.String
		d.Secret = secret.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqlStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	if success {
		_, err := s.db.ExecContext(ctx, `UPDATE webhook_deliveries
			SET status='delivered', attempts=attempts+1, last_error=$1, response_code=$2, latency_ms=$3 WHERE id=$4`,
			lastError, responseCode, latencyMs, id)
		return err
	}
	var next any
	if nextAttemptAt != nil {
		next = s.bindTime(*nextAttemptAt)
	}
	_, err := s.db.ExecContext(ctx, `UPDATE webhook_deliveries
		SET attempts=attempts+1, next_attempt_at=$1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$5`,
		next, lastError, responseCode, latencyMs, id)
	return err
}

func (s *sqlStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE webhook_deliveries
		SET status='failed', attempts=attempts+1, last_error=$1, response_code=$2, latency_ms=$3 WHERE id=$4`,
		lastError, responseCode, latencyMs, id)
	return err
}

func (s *sqlStore) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, event_type, url, status, attempts, response_code, latency_ms, last_error
		FROM webhook_deliveries WHERE tenant_id=$1 AND id > $2`
	args := []any{tenantID, cursor}
	if status != "" {
		q += ` AND status=$3 ORDER BY id LIMIT $4`
		args = append(args, status, limit)
	} else {
		q += ` ORDER BY id LIMIT $3`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []map[string]any{}
	last := ""
	for rows.Next() {
		var id, eventType, url, st string
		var attempts int
		var code, latency sql.NullInt64
		var lastErr sql.NullString
		if err := rows.Scan(&id, &eventType, &url, &st, &attempts, &code, &latency, &lastErr); err != nil {
			return nil, "", err
		}
		out = append(out, map[string]any{
			"id": id, "eventType": eventType, "url": url, "status": st,
			"attempts": attempts, "responseCode": int(code.Int64),
			"latencyMs": int(latency.Int64), "lastError": lastErr.String,
		})
		last = id
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (s *sqlStore) RouteStats(ctx context.Context, tenantID, planDate string) (map[string]any, error) {
	q := `SELECT COUNT(*), COALESCE(SUM(stop_count),0), COALESCE(SUM(total_distance_miles),0), COALESCE(SUM(total_travel_min),0), COALESCE(AVG(efficiency_score),0)
		FROM routes WHERE tenant_id=$1`
	args := []any{tenantID}
	if planDate != "" {
		q += ` AND plan_date=$2`
		args = append(args, planDate)
	}
	var routes, stops, travel int
	var distance, avgEff float64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&routes, &stops, &distance, &travel, &avgEff); err != nil {
		return nil, err
	}
	stats := map[string]any{
		"routes": routes, "stops": stops,
		"totalDistanceMiles": distance, "totalTravelTimeMin": travel,
	}
	if routes > 0 {
		stats["avgEfficiencyScore"] = int(avgEff)
	}
	return stats, nil
}

func openSQL(driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty dsn")
	}
	return sql.Open(driver, dsn)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func toJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}
