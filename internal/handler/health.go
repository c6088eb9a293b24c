// Package handler contains the HTTP handlers and route wiring.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"hbooker-proxy/internal/client"
	"hbooker-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// breakerReporter is the part of the upstream client the status page reads.
type breakerReporter interface {
	BreakerState() string
}

// HealthHandler serves the liveness probe and the proxy status page.
type HealthHandler struct {
	cfg      *config.Config
	version  Version
	upstream breakerReporter
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version, uc *client.UpstreamClient) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, upstream: uc}
}

// Healthz answers liveness probes. It never contacts the upstream.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	UpstreamURL    string `json:"upstream_url"`
	ProxyPrefix    string `json:"proxy_prefix"`
	StaticRoot     string `json:"static_root"`
	CircuitBreaker string `json:"circuit_breaker"`
}

// Status reports where /api is forwarded, where assets are served from and
// whether the upstream circuit is open.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:         "ok",
		Version:        string(h.version),
		UpstreamURL:    h.cfg.Upstream.BaseURL,
		ProxyPrefix:    config.ProxyPrefix,
		StaticRoot:     h.cfg.Static.Root,
		CircuitBreaker: h.upstream.BreakerState(),
	})
}
