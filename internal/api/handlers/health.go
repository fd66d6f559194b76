// Package handlers implements HTTP handlers for the scanworth API.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ReadyFunc reports whether the service can serve estimates. A nil error
// means ready.
type ReadyFunc func() error

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	ready ReadyFunc
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(ready ReadyFunc) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 if at least one source adapter is wired up, 503
// otherwise.
func (h *HealthHandler) Readyz(c echo.Context) error {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			return c.JSON(
				http.StatusServiceUnavailable,
				StatusResponse{Status: "unavailable", Reason: err.Error()},
			)
		}
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}
