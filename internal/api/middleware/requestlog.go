package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// healthLogPaths are probe endpoints whose repeated successes are suppressed
// from the request log. Only the first success and every failure get a line;
// kubelets probe these every few seconds.
var healthLogPaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
}

// RequestLog returns Echo middleware that logs every request with structured
// fields. It generates a request ID if the client did not send one and
// propagates it through the response header and echo context.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var mu sync.Mutex
	loggedHealthOK := make(map[string]bool)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set("request_id", reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			path := c.Request().URL.Path
			status := c.Response().Status

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError || status == http.StatusServiceUnavailable {
				level = slog.LevelWarn
			}

			if _, probe := healthLogPaths[path]; probe && level == slog.LevelInfo {
				mu.Lock()
				seen := loggedHealthOK[path]
				loggedHealthOK[path] = true
				mu.Unlock()
				if seen {
					return err
				}
			}

			log.Log(c.Request().Context(), level, "request",
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			)

			return err
		}
	}
}
