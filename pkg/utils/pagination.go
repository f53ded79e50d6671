package utils

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// CursorParams represents timestamp-cursor pagination parameters
type CursorParams struct {
	Limit  int
	Before time.Time
}

// GetCursorParams extracts `limit` and `before` (RFC3339Nano) from the request.
func GetCursorParams(c echo.Context, defaultLimit, maxLimit int) CursorParams {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	var before time.Time
	if raw := c.QueryParam("before"); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			before = t
		}
	}

	return CursorParams{
		Limit:  limit,
		Before: before,
	}
}

// FormatCursor renders a timestamp the way GetCursorParams parses it.
func FormatCursor(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
