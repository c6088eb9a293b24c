package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"

	"hbooker-proxy/internal/model"
	"hbooker-proxy/internal/service"
	"hbooker-proxy/internal/state"
)

// ErrBodyRead is returned when the inbound request body cannot be drained.
var ErrBodyRead = errors.New("read request body")

// ProxyHandler forwards /api requests to the upstream using the proxy service
// found in the request context.
type ProxyHandler struct {
	logger *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		logger: logger.With("component", "proxy_handler"),
	}
}

// Handle buffers the inbound body, forwards the request upstream and relays the
// complete response. Nothing is written to the client until the upstream
// response has been read in full.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return h.mapError(c, fmt.Errorf("%w: %w", ErrBodyRead, err))
	}

	svc, err := state.From(c)
	if err != nil {
		return h.mapError(c, err)
	}

	resp, err := svc.Forward(&model.ProxyRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		Path:     req.URL.EscapedPath(),
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
		Body:     body,
		ClientIP: clientIP(req.RemoteAddr),
	})
	if err != nil {
		return h.mapError(c, err)
	}

	header := c.Response().Header()
	for key, vals := range resp.Header {
		header[key] = vals
	}
	c.Response().WriteHeader(resp.StatusCode)

	if _, err := c.Response().Write(resp.Body); err != nil {
		h.logger.Warn("writing response body",
			"err", err,
			"path", req.URL.Path,
		)
	}
	return nil
}

// clientIP returns the peer address of the connection, or "" when it cannot be
// determined. Forwarding headers sent by the client are not trusted here.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return ""
	}
	return addr.WithZone("").Unmap().String()
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", service.Redact(err.Error()),
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, state.ErrMissingState) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "proxy is not configured",
		})
	}

	if errors.Is(err, ErrBodyRead) {
		var he *echo.HTTPError
		var maxErr *http.MaxBytesError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge || errors.As(err, &maxErr) {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
				"error": "request body too large",
			})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "upstream temporarily unavailable",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return c.JSON(http.StatusGatewayTimeout, map[string]string{
				"error": "upstream request timed out",
			})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream connection failed",
		})
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream request failed",
	})
}
