package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fieldroute/internal/store"
)

// Event types emitted by the API. Subscriptions filter on these.
const (
	EventRoutesPlanned      = "routes.planned"
	EventRouteStatusChanged = "route.status.changed"
	EventTechnicianLocation = "technician.location"
	EventJobsImported       = "jobs.imported"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit fans an event out to every subscription for the tenant and event type.
// Delivery is asynchronous; this only enqueues.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, tenantID, eventType)
	if err != nil || len(subs) == 0 {
		return
	}
	payload := map[string]any{
		"id":       "evt_" + uuid.New().String(),
		"type":     eventType,
		"tenantId": tenantID,
		"ts":       time.Now().UTC().Format(time.RFC3339),
		"data":     data,
	}
	body, _ := json.Marshal(payload)
	for _, s := range subs {
		_, _ = p.Store.EnqueueWebhook(ctx, tenantID, s.ID, eventType, s.URL, s.Secret, body)
	}
}
