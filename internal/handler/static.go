package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"hbooker-proxy/internal/config"
)

// StaticHandler serves the front-end assets for every path outside /api.
type StaticHandler struct {
	serve echo.HandlerFunc
}

// NewStaticHandler creates a StaticHandler rooted at cfg.Static.Root.
func NewStaticHandler(cfg *config.Config) *StaticHandler {
	mw := echomw.StaticWithConfig(echomw.StaticConfig{
		Root:       ".",
		Index:      cfg.Static.Index,
		Filesystem: http.Dir(cfg.Static.Root),
	})
	return &StaticHandler{serve: mw(notFound)}
}

// Handle serves the requested file, the index document for directories, or 404.
func (h *StaticHandler) Handle(c echo.Context) error {
	return h.serve(c)
}

func notFound(echo.Context) error {
	return echo.ErrNotFound
}
