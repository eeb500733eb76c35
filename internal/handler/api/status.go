package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"UsagePrep/internal/usecase"
	applogger "UsagePrep/pkg/logger"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// StatusHandler exposes liveness and last-cycle observability endpoints.
type StatusHandler struct {
	log       *applogger.Logger
	scheduler *usecase.RefreshScheduler
	health    HealthChecker
}

// NewStatusHandler creates the status handler.
func NewStatusHandler(log *applogger.Logger, scheduler *usecase.RefreshScheduler, health HealthChecker) *StatusHandler {
	return &StatusHandler{log: log, scheduler: scheduler, health: health}
}

// RegisterRoutes registers the handler routes on the Echo instance.
func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/status", h.Status)
}

// Healthz pings the store and reports liveness.
func (h *StatusHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.health.Health(ctx); err != nil {
		h.log.Warn("health check failed", applogger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Status returns the most recent refresh cycle report.
func (h *StatusHandler) Status(c echo.Context) error {
	report := h.scheduler.LastCycle()
	if report == nil {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "no cycles completed yet",
		})
	}
	return c.JSON(http.StatusOK, report)
}
