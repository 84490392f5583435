package api

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fieldroute/internal/config"
	"fieldroute/internal/metrics"
)

// statusRecorder captures the status code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LogMiddleware writes one key=value line per request.
func LogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("method=%s path=%s status=%d dur=%s remote=%s",
			r.Method, r.URL.Path, rec.status, time.Since(start), r.RemoteAddr)
	})
}

// MetricsMiddleware feeds the Prometheus HTTP series. Paths are bucketed to
// their first two segments to keep cardinality down.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := pathBucket(r.URL.Path)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

func pathBucket(p string) string {
	parts := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 3)
	if len(parts) >= 2 {
		return "/" + parts[0] + "/" + parts[1]
	}
	return p
}

// RateLimitMiddleware applies a per-client token bucket keyed by remote IP.
type rateLimiters struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	rps rate.Limit
	b   int
}

func RateLimitMiddleware(cfg config.RateLimit, next http.Handler) http.Handler {
	rl := &rateLimiters{m: map[string]*rate.Limiter{}, rps: rate.Limit(cfg.RPS), b: cfg.Burst}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r)) {
			writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "slow down", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiters) allow(key string) bool {
	rl.mu.Lock()
	lim := rl.m[key]
	if lim == nil {
		lim = rate.NewLimiter(rl.rps, rl.b)
		rl.m[key] = lim
	}
	rl.mu.Unlock()
	return lim.Allow()
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
