package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fieldroute/internal/api"
	"fieldroute/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	srvDeps, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Jobs
	mux.HandleFunc("/v1/jobs", srvDeps.JobsHandler)
	mux.HandleFunc("/v1/jobs/clusters", srvDeps.JobClustersHandler)
	mux.HandleFunc("/v1/imports/jobs", srvDeps.ImportJobsHandler)

	// Technicians
	mux.HandleFunc("/v1/technicians", srvDeps.TechniciansHandler)
	mux.HandleFunc("/v1/technicians/", srvDeps.TechnicianByIDHandler) // includes /location, /routes

	// Optimization
	mux.HandleFunc("/v1/optimize", srvDeps.OptimizeHandler)

	// Routes
	mux.HandleFunc("/v1/routes", srvDeps.RoutesIndexHandler)
	mux.HandleFunc("/v1/routes/", srvDeps.RouteByIDHandler) // includes /validate, /locations, /events/stream

	// Subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

	// Admin
	mux.HandleFunc("/v1/admin/route-stats", srvDeps.RouteStatsHandler)
	mux.HandleFunc("/v1/admin/plan-metrics", srvDeps.PlanMetricsHandler)
	mux.HandleFunc("/v1/admin/webhook-deliveries", srvDeps.WebhookDeliveriesHandler)

	// Route events over WebSocket
	mux.HandleFunc("/v1/route-events/ws", srvDeps.RouteEventsWSHandler)

	// Health + metrics
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	handler := api.RateLimitMiddleware(srvDeps.Cfg.RateLimit,
		api.LogMiddleware(api.MetricsMiddleware(mux)))

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	worker := srvDeps.NewWebhookWorker()
	worker.Start()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
