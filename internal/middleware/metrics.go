package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics exposes the HTTP metrics collector on router under /metrics
// and returns the middleware that feeds it. The collector is registered
// once per process, keyed by the first serviceName seen.
func InitMetrics(router fiber.Router, serviceName string) fiber.Handler {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	prom.RegisterAt(router, "/metrics")
	return prom.Middleware
}
