package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		status        int
		providedReqID string
		wantLogFields []string
	}{
		{
			name:   "logs GET request with generated ID",
			method: http.MethodGet,
			path:   "/api/v1/alerts",
			status: http.StatusOK,
			wantLogFields: []string{
				"level=INFO",
				"method=GET",
				"path=/api/v1/alerts",
				"status=200",
				"duration_ms=",
				"remote_ip=",
				"request_id=",
			},
		},
		{
			name:   "logs POST request",
			method: http.MethodPost,
			path:   "/api/v1/alerts/7/resolve",
			status: http.StatusOK,
			wantLogFields: []string{
				"method=POST",
				"status=200",
			},
		},
		{
			name:   "server errors log at warn",
			method: http.MethodGet,
			path:   "/api/v1/alerts",
			status: http.StatusInternalServerError,
			wantLogFields: []string{
				"level=WARN",
				"status=500",
			},
		},
		{
			name:          "uses provided request ID",
			method:        http.MethodGet,
			path:          "/test",
			status:        http.StatusOK,
			providedReqID: "custom-req-id-123",
			wantLogFields: []string{
				"request_id=custom-req-id-123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e := echo.New()
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.providedReqID != "" {
				req.Header.Set(requestIDHeader, tt.providedReqID)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := RequestLog(logger)(func(c echo.Context) error {
				return c.NoContent(tt.status)
			})

			err := handler(c)
			require.NoError(t, err)

			logOutput := buf.String()
			for _, field := range tt.wantLogFields {
				assert.Contains(t, logOutput, field)
			}

			// Response should have the request ID header.
			respID := rec.Header().Get(requestIDHeader)
			assert.NotEmpty(t, respID)

			if tt.providedReqID != "" {
				assert.Equal(t, tt.providedReqID, respID)
			}

			// Context should have request_id.
			assert.NotEmpty(t, c.Get(requestIDKey))
		})
	}
}

func TestLogger_ScopedToRequest(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", http.NoBody)
	req.Header.Set(requestIDHeader, "scoped-id-9")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestLog(logger)(func(c echo.Context) error {
		Logger(c, logger).Info("handler event")
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, handler(c))

	// The handler's own log line carries the request id without the
	// handler passing it explicitly.
	assert.Contains(t, buf.String(), "handler event")
	assert.Contains(t, buf.String(), "request_id=scoped-id-9")
}

func TestLogger_FallsBackWithoutMiddleware(t *testing.T) {
	t.Parallel()

	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Same(t, fallback, Logger(c, fallback))
}
