package store

import (
	"context"
	"errors"
	"time"

	"fieldroute/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Jobs
	CreateJobs(ctx context.Context, tenantID string, jobs []model.JobIn) (ids []string, err error)
	ListJobs(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Job, string, error)
	GetJobs(ctx context.Context, tenantID string, ids []string) ([]model.Job, error)

	// Technicians
	CreateTechnicians(ctx context.Context, tenantID string, techs []model.TechnicianIn) ([]string, error)
	ListTechnicians(ctx context.Context, tenantID, cursor string, limit int) ([]model.Technician, string, error)
	GetTechnician(ctx context.Context, tenantID, id string) (model.Technician, error)

	// Planning
	PlanRoutes(ctx context.Context, req model.OptimizeRequest) (model.PlanResult, error)

	// Routes
	GetRoute(ctx context.Context, tenantID, routeID string) (model.OptimizedRoute, error)
	ListRoutes(ctx context.Context, tenantID, planDate, cursor string, limit int) ([]model.OptimizedRoute, string, error)
	PatchRoute(ctx context.Context, tenantID, routeID string, patch model.RoutePatch) (model.OptimizedRoute, error)
	ListRoutesForTechnician(ctx context.Context, tenantID, technicianID string) ([]model.OptimizedRoute, error)

	// Webhook subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)

	// Aggregates
	RouteStats(ctx context.Context, tenantID, planDate string) (map[string]any, error)
}

var ErrNotFound = errors.New("not found")

// WebhookDelivery is one queued outbound webhook attempt.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}
