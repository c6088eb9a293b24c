// Package state hands the process-wide proxy configuration to request handlers
// through the echo request context.
package state

import (
	"errors"

	"github.com/labstack/echo/v4"

	"hbooker-proxy/internal/service"
)

// ErrMissingState is returned when a request reaches the proxy without the
// shared configuration in its context. It indicates a wiring error.
var ErrMissingState = errors.New("proxy state missing from request context")

const contextKey = "hbooker_proxy.state"

// Inject returns a middleware that makes svc available to downstream handlers.
func Inject(svc *service.ProxyService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(contextKey, svc)
			return next(c)
		}
	}
}

// From returns the proxy service stored by Inject.
func From(c echo.Context) (*service.ProxyService, error) {
	svc, ok := c.Get(contextKey).(*service.ProxyService)
	if !ok || svc == nil {
		return nil, ErrMissingState
	}
	return svc, nil
}
