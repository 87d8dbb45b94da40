package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "artfeed_redis_errors_total",
	Help: "Total number of Redis errors by command",
}, []string{"command"})

// MediaDeleteFailures counts media object deletions that failed after a
// successful database delete, leaving an orphaned file on disk.
var MediaDeleteFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "artfeed_media_delete_failures_total",
	Help: "Total number of media deletions that failed after a DB commit",
})

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler recording per-request metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
