package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golobby/container/v3"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/matchcore/core/pkg/infra/observability"
)

var startTime = time.Now()

// HealthResponse is the simplified liveness/readiness payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

type HealthController struct {
	Container     container.Container
	healthService *observability.HealthService
}

func NewHealthController(c container.Container) *HealthController {
	healthService := observability.NewHealthService("1.0.0")

	var mongoClient *mongo.Client
	if err := c.Resolve(&mongoClient); err == nil && mongoClient != nil {
		healthService.RegisterMongoDBChecker(func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		})
	}

	var redisClient *redis.Client
	if err := c.Resolve(&redisClient); err == nil && redisClient != nil {
		healthService.RegisterRedisChecker(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	return &HealthController{
		Container:     c,
		healthService: healthService,
	}
}

// HealthCheck is a plain liveness probe: always OK once the process is up.
func (hc *HealthController) HealthCheck(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		json.NewEncoder(w).Encode(HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).Round(time.Second).String(),
		})
	}
}

// ReadinessCheck reports status for every registered dependency checker.
func (hc *HealthController) ReadinessCheck(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := hc.healthService.Check(r.Context())

		checks := make(map[string]string, len(result.Components))
		for name, component := range result.Components {
			checks[name] = string(component.Status)
			if component.Message != "" {
				checks[name] += ": " + component.Message
			}
		}

		statusCode := http.StatusOK
		if result.Status == observability.HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:    string(result.Status),
			Timestamp: result.Timestamp.Format(time.RFC3339),
			Uptime:    result.Uptime.Round(time.Second).String(),
			Version:   result.Version,
			Checks:    checks,
		})
	}
}

// DetailedHealthCheck returns the full SystemHealth payload.
func (hc *HealthController) DetailedHealthCheck(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := hc.healthService.Check(r.Context())

		statusCode := http.StatusOK
		if result.Status == observability.HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(result)
	}
}

// LivenessCheck answers Kubernetes' liveness probe.
func (hc *HealthController) LivenessCheck(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hc.healthService.Liveness(r.Context()) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT OK"))
		}
	}
}

func (hc *HealthController) GetHealthService() *observability.HealthService {
	return hc.healthService
}
