package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Limiter decides per key whether a request may proceed.
type Limiter interface {
	Allow(key string) bool
	RetryAfter(key string) time.Duration
}

// RateLimit rejects requests with 429 once the client IP runs out of tokens.
func RateLimit(lim Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if lim.Allow(key) {
				return next(c)
			}
			if wait := lim.RetryAfter(key); wait > 0 {
				secs := int(wait.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			}
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": http.StatusText(http.StatusTooManyRequests),
				"errors": []map[string]string{{
					"code":    "ERR_RATE_LIMITED",
					"message": "too many runs requested, retry later",
				}},
			})
		}
	}
}
