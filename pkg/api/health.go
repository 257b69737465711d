package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuemby/universalis/pkg/metrics"
)

// Pinger is implemented by a dependency whose liveness this server can
// probe: the Postgres pool and the Redis client both qualify.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger adapts *redis.Client's Ping (which returns a *StatusCmd) to
// Pinger.
type RedisPinger struct {
	Client *redis.Client
}

func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

// HealthServer exposes /health, /ready, and /metrics on its own mux,
// independent of the v2 API routes.
type HealthServer struct {
	postgres Pinger
	redis    Pinger
	mux      *http.ServeMux
}

// NewHealthServer builds a HealthServer probing postgres and redis.
func NewHealthServer(postgres, redis Pinger) *HealthServer {
	hs := &HealthServer{postgres: postgres, redis: redis, mux: http.NewServeMux()}
	hs.mux.HandleFunc("GET /health", hs.healthHandler)
	hs.mux.HandleFunc("GET /ready", hs.readyHandler)
	hs.mux.Handle("/metrics", metrics.Handler())
	return hs
}

// Start serves the health mux on addr until it errors.
func (hs *HealthServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// Handler returns the underlying mux for embedding or testing.
func (hs *HealthServer) Handler() http.Handler {
	return hs.mux
}

// HealthResponse is a liveness response: the process is up.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse is a readiness response: dependencies are reachable.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now()})
}

func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true
	var message string

	if err := hs.postgres.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		ready = false
		message = "postgres not reachable"
	} else {
		checks["postgres"] = "ok"
	}

	if err := hs.redis.Ping(ctx); err != nil {
		checks["redis"] = err.Error()
		ready = false
		if message == "" {
			message = "redis not reachable"
		}
	} else {
		checks["redis"] = "ok"
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	payload, _ := json.Marshal(ReadyResponse{Status: status, Timestamp: time.Now(), Checks: checks, Message: message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(payload)
}
