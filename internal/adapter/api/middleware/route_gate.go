package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"chatterbox/internal/adapter/api"
)

const (
	LoginPath  = "/login"
	VerifyPath = "/verify"
	HomePath   = "/"
)

// RouteGate redirects page requests by session state: anonymous users to the
// login page, unverified users to the verification page and verified users away
// from both. API routes and static files are not gated.
func RouteGate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := c.Request().URL.Path
			if !gated(p) {
				return next(c)
			}

			authenticated := api.CookieValue(c, api.SessionCookie) != ""
			verified := api.CookieValue(c, api.EmailVerifiedCookie) == "true"

			if target := gateTarget(p, authenticated, verified); target != "" {
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}

func gated(p string) bool {
	switch {
	case strings.HasPrefix(p, "/api/"), p == "/api":
		return false
	case p == "/health", strings.HasPrefix(p, "/health/"), p == "/metrics":
		return false
	case path.Ext(p) != "":
		return false
	}
	return true
}

// gateTarget returns where a request for p must go, or "" to let it through.
func gateTarget(p string, authenticated, verified bool) string {
	onLogin := p == LoginPath
	onVerify := p == VerifyPath

	switch {
	case !authenticated:
		if onLogin || onVerify {
			return ""
		}
		return LoginPath
	case !verified:
		if onVerify {
			return ""
		}
		return VerifyPath
	case onLogin || onVerify:
		return HomePath
	}
	return ""
}
