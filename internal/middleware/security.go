package middleware

import (
	"github.com/labstack/echo/v4"
)

// staticResponseHeaders are set on every front-end asset response.
var staticResponseHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "same-origin"},
}

// staticIgnoredRequestHeaders mean nothing to a local file server and are
// removed before the file lookup.
var staticIgnoredRequestHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"TE",
	"Trailer",
	"Upgrade",
}

// SecurityHeaders guards the static front-end routes. Proxied responses are
// relayed untouched and must not use it.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqHeader := c.Request().Header
			for _, name := range staticIgnoredRequestHeaders {
				reqHeader.Del(name)
			}

			// Headers set after the file body has been written would be lost.
			resHeader := c.Response().Header()
			for _, kv := range staticResponseHeaders {
				resHeader.Set(kv[0], kv[1])
			}

			return next(c)
		}
	}
}
