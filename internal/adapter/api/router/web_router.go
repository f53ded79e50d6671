package router

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"chatterbox/internal/adapter/api/middleware"
)

// SetupWebRouter serves the single page app from root behind the page gate.
// Unknown page paths fall back to index.html.
func SetupWebRouter(e *echo.Echo, root string) {
	if root == "" {
		return
	}

	e.Use(middleware.RouteGate())
	e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
		Root:  root,
		HTML5: true,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, "/api/") || p == "/health" || strings.HasPrefix(p, "/health/") || p == "/metrics"
		},
	}))
}
