package handler // package handler contains the HTTP handlers of the placement API

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the unauthenticated liveness probe.  It returns "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
