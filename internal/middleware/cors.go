package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"hbooker-proxy/internal/config"
)

// CORS returns the cross-origin policy applied in front of the proxied routes.
// Request headers are not restricted: preflights get the requested headers
// echoed back.
func CORS(cfg config.CORSConfig) echo.MiddlewareFunc {
	credentials := cfg.AllowCredentials != nil && *cfg.AllowCredentials

	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     cfg.AllowedMethods,
		AllowCredentials: credentials,
		MaxAge:           cfg.MaxAgeSeconds,
	})
}
