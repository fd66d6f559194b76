package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/scanworth/scanworth/internal/api/handlers"
)

// Recovery returns Echo middleware that turns handler panics into a JSON 500.
// The stack only goes to the log; clients get the generic error body.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				fields := []any{
					"error", fmt.Sprint(r),
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"stack", string(debug.Stack()),
				}
				if reqID, ok := c.Get("request_id").(string); ok {
					fields = append(fields, "request_id", reqID)
				}
				log.Error("panic recovered", fields...)

				err = c.JSON(
					http.StatusInternalServerError,
					handlers.ErrorResponse{Error: "internal server error"},
				)
			}()
			return next(c)
		}
	}
}
