package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fieldops/ticket-sentinel/internal/api/middleware"
	"github.com/fieldops/ticket-sentinel/internal/engine"
	"github.com/fieldops/ticket-sentinel/internal/store"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// AlertsHandler handles alert query and resolution endpoints.
type AlertsHandler struct {
	engine *engine.Engine
	log    *slog.Logger
}

// NewAlertsHandler creates a new AlertsHandler. The logger is the fallback
// when the request-scoped one is absent.
func NewAlertsHandler(eng *engine.Engine, log *slog.Logger) *AlertsHandler {
	return &AlertsHandler{engine: eng, log: log}
}

// ListAlertsResponse is the response for listing alerts.
type ListAlertsResponse struct {
	Alerts []domain.Alert `json:"alerts"`
	Count  int            `json:"count"`
}

// ListAlerts returns alerts with optional filters for user, group, type,
// severity, resolution state, and pagination.
func (h *AlertsHandler) ListAlerts(c echo.Context) error {
	q, err := parseAlertQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	alerts, err := h.engine.ListAlerts(c.Request().Context(), q)
	if err != nil {
		middleware.Logger(c, h.log).Error("listing alerts", "error", err)
		return c.JSON(
			http.StatusInternalServerError,
			map[string]string{"error": "listing alerts failed"},
		)
	}

	if alerts == nil {
		alerts = []domain.Alert{}
	}

	return c.JSON(http.StatusOK, ListAlertsResponse{
		Alerts: alerts,
		Count:  len(alerts),
	})
}

// ResolveAlert marks an alert resolved. Resolving an already resolved or
// unknown alert returns 404.
func (h *AlertsHandler) ResolveAlert(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
	}

	if err := h.engine.ResolveAlert(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "alert not found"})
		}
		middleware.Logger(c, h.log).Error("resolving alert", "id", id, "error", err)
		return c.JSON(
			http.StatusInternalServerError,
			map[string]string{"error": "resolving alert failed"},
		)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "resolved"})
}

func parseAlertQuery(c echo.Context) (*store.AlertQuery, error) {
	q := &store.AlertQuery{}

	if v := c.QueryParam("user_id"); v != "" {
		q.UserID = &v
	}

	if v := c.QueryParam("group_id"); v != "" {
		gid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New("invalid group_id")
		}
		q.GroupID = &gid
	}

	if v := c.QueryParam("type"); v != "" {
		t := domain.AlertType(v)
		q.Type = &t
	}

	if v := c.QueryParam("severity"); v != "" {
		sev := domain.Severity(v)
		if !sev.Valid() {
			return nil, errors.New("invalid severity")
		}
		q.Severity = &sev
	}

	if v := c.QueryParam("unresolved"); v != "" {
		unresolved, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid unresolved flag")
		}
		q.Unresolved = unresolved
	}

	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return nil, errors.New("invalid limit")
		}
		q.Limit = limit
	}

	if v := c.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return nil, errors.New("invalid offset")
		}
		q.Offset = offset
	}

	return q, nil
}
