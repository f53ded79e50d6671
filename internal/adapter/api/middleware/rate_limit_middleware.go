package middleware

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/pkg/errors"
	"chatterbox/pkg/logger"
	"chatterbox/pkg/response"
)

// RateLimit throttles requests per client IP under the given action's bucket.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ok, wait := limiter.Allow(ip, action); !ok {
				logger.Warn("RATE LIMIT: blocked %s from %s (retry in %v)", action, ip, wait)
				return response.Error(c, errors.TooManyRequests(
					fmt.Sprintf("Rate limit exceeded, retry in %s", wait.Round(time.Second)),
				))
			}
			return next(c)
		}
	}
}
