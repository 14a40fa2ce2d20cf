package sigvault

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMetricsPath is used if no metrics path is configured
const DefaultMetricsPath = "/metrics"

func registerMetrics(r fiber.Router, path string, gatherer prometheus.Gatherer) {
	if path == "" {
		path = DefaultMetricsPath
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
