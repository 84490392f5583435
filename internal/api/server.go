package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"fieldroute/internal/auth"
	"fieldroute/internal/config"
	"fieldroute/internal/store"
	"fieldroute/internal/webhooks"
)

type Server struct {
	Store     store.Store
	Pub       *webhooks.Publisher
	Auth      *auth.Verifier
	Broker    EventBroker
	Cfg       config.Config
	Locations *LocationCache
}

// NewServer wires the service from the environment: DATABASE_URL selects
// Postgres, SQLITE_PATH selects SQLite, otherwise in-memory; REDIS_URL
// selects the Redis event broker.
func NewServer() (*Server, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	var s store.Store
	switch {
	case strings.TrimSpace(os.Getenv("DATABASE_URL")) != "":
		pg, err := store.NewPostgres(os.Getenv("DATABASE_URL"))
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := pg.EnsureSchema(context.Background()); err != nil {
				return nil, err
			}
		}
		s = pg
	case strings.TrimSpace(os.Getenv("SQLITE_PATH")) != "":
		sl, err := store.NewSQLite(os.Getenv("SQLITE_PATH"))
		if err != nil {
			return nil, err
		}
		if err := sl.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		s = sl
	default:
		s = store.NewMemory()
	}

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	return &Server{
		Store:     s,
		Pub:       webhooks.NewPublisher(s),
		Auth:      auth.NewVerifierFromEnv(),
		Broker:    broker,
		Cfg:       cfg,
		Locations: NewLocationCache(),
	}, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := s.getPrincipal(r).Tenant
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
