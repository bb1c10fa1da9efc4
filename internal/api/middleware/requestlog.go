package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"

	// Echo context keys set by RequestLog.
	requestIDKey = "request_id"
	loggerKey    = "request_logger"
)

// RequestLog returns Echo middleware that assigns each request an id,
// installs a request-scoped logger in the echo context, and writes one
// structured line per request. Requests that end in a 5xx log at warn so
// server failures stand out from routine alert traffic.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			reqLog := log.With(requestIDKey, reqID)
			c.Set(requestIDKey, reqID)
			c.Set(loggerKey, reqLog)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			attrs := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", c.RealIP(),
			}
			if c.Response().Status >= http.StatusInternalServerError {
				reqLog.Warn("request", attrs...)
			} else {
				reqLog.Info("request", attrs...)
			}

			return err
		}
	}
}

// Logger returns the request-scoped logger installed by RequestLog, or
// fallback when the middleware did not run on this request.
func Logger(c echo.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := c.Get(loggerKey).(*slog.Logger); ok {
		return l
	}
	return fallback
}
