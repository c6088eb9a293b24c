package handler

import (
	"github.com/labstack/echo/v4"

	"hbooker-proxy/internal/config"
	"hbooker-proxy/internal/metrics"
	"hbooker-proxy/internal/middleware"
	"hbooker-proxy/internal/service"
	"hbooker-proxy/internal/state"
)

// Routes groups the handlers registered by RegisterRoutes.
type Routes struct {
	Proxy  *ProxyHandler
	Health *HealthHandler
	Static *StaticHandler
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, svc *service.ProxyService, m *metrics.Metrics, r Routes) {
	e.GET("/healthz", r.Health.Healthz)
	e.GET("/proxy/status", r.Health.Status)
	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
	}

	api := e.Group(config.ProxyPrefix, middleware.CORS(cfg.CORS), state.Inject(svc))
	api.Any("", r.Proxy.Handle)
	api.Any("/*", r.Proxy.Handle)

	assets := middleware.SecurityHeaders()
	e.GET("/*", r.Static.Handle, assets)
	e.HEAD("/*", r.Static.Handle, assets)
}
