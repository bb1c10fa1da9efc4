package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldops/ticket-sentinel/internal/api"
	"github.com/fieldops/ticket-sentinel/internal/config"
	"github.com/fieldops/ticket-sentinel/internal/engine"
	"github.com/fieldops/ticket-sentinel/internal/quota"
	"github.com/fieldops/ticket-sentinel/internal/store"
	"github.com/fieldops/ticket-sentinel/pkg/logger"
)

func TestServerRoutes(t *testing.T) {
	t.Parallel()

	log := logger.NewWithWriter(io.Discard, "error", "text")
	s := store.NewMemoryStore(quota.NewGuard(quota.DefaultDailyCap))
	eng := engine.NewEngine(s, engine.WithLogger(log))

	srv := api.New(&config.ServerConfig{Host: "127.0.0.1", Port: 0}, s, eng, log)
	handler := srv.Handler()

	tests := []struct {
		method     string
		target     string
		wantStatus int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/alerts", http.StatusOK},
		{http.MethodPost, "/api/v1/alerts/1/resolve", http.StatusNotFound},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tt.wantStatus, rec.Code, "%s %s", tt.method, tt.target)
	}
}
