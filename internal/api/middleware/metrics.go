// Package middleware provides Echo middleware for ticket-sentinel.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fieldops/ticket-sentinel/internal/metrics"
)

// operationalPaths are excluded from per-request histogram and counter
// metrics; scrapes and probes would otherwise dominate the series. Paths
// mapped to a gauge additionally publish a 0/1 probe result.
var operationalPaths = map[string]prometheus.Gauge{
	"/metrics": nil,
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

// Metrics returns Echo middleware that records request duration and status
// per route template, so /api/v1/alerts/:id/resolve stays one series
// regardless of the alert id.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			if gauge, operational := operationalPaths[path]; operational {
				err := next(c)
				if gauge != nil {
					setProbeGauge(gauge, c.Response().Status)
				}
				return err
			}

			start := time.Now()

			err := next(c)

			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			metrics.HTTPRequestDuration.
				WithLabelValues(method, path, status).
				Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.
				WithLabelValues(method, path, status).
				Inc()

			return err
		}
	}
}

// setProbeGauge publishes 1 for a successful probe response, 0 otherwise.
func setProbeGauge(g prometheus.Gauge, status int) {
	if status >= 200 && status < 300 {
		g.Set(1)
		return
	}
	g.Set(0)
}
