package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the default Prometheus registry, which the
// "prometheus" metrics exporter registers with.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
