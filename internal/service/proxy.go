// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"hbooker-proxy/internal/client"
	"hbooker-proxy/internal/config"
	"hbooker-proxy/internal/model"
)

// ErrUpstreamUnreachable wraps every failure to obtain a complete upstream response.
var ErrUpstreamUnreachable = errors.New("upstream unreachable")

// ProxyService is the process-wide, read-only proxy configuration: the upstream
// target, the outbound client and the User-Agent sent upstream.
type ProxyService struct {
	client    *client.UpstreamClient
	target    *Target
	userAgent string
	logger    *slog.Logger
}

// NewProxyService creates a ProxyService. It fails with ErrConfigInvalid when
// the upstream base URL is unusable.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	t, err := NewTarget(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}

	return &ProxyService{
		client:    c,
		target:    t,
		userAgent: cfg.Upstream.UserAgent,
		logger:    logger.With("component", "proxy_service"),
	}, nil
}

// Target returns the upstream target.
func (s *ProxyService) Target() *Target {
	return s.target
}

// Forward sends a ProxyRequest to the upstream and returns the relayed response.
// Exactly one upstream request is made; failures are never retried.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	req, err := s.newOutbound(pr)
	if err != nil {
		return nil, err
	}

	s.logger.Info("proxy request",
		"method", req.Method,
		"url", Redact(req.URL.String()),
		"headers", len(req.Header),
		"body", humanize.Bytes(uint64(len(pr.Body))),
		"client_ip", pr.ClientIP,
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
	}
	return s.relay(resp)
}

// newOutbound builds the upstream request. All inbound headers are forwarded;
// User-Agent is replaced and the client IP is appended to X-Forwarded-For.
func (s *ProxyService) newOutbound(pr *model.ProxyRequest) (*http.Request, error) {
	u := s.target.Resolve(pr.Path, pr.RawQuery)

	req, err := http.NewRequestWithContext(pr.Ctx, pr.Method, u.String(), bytes.NewReader(pr.Body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	header := pr.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("User-Agent", s.userAgent)
	if pr.ClientIP != "" {
		header.Add("X-Forwarded-For", pr.ClientIP)
	}
	req.Header = header

	return req, nil
}

// relay reads the upstream body to completion so that a broken upstream body
// turns into an error response instead of a truncated one.
func (s *ProxyService) relay(resp *http.Response) (*model.ProxyResponse, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read upstream body: %w", ErrUpstreamUnreachable, err)
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     filterResponseHeaders(resp.Header),
		Body:       body,
	}, nil
}

// filterResponseHeaders copies src without the hop-by-hop Connection header.
func filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if strings.EqualFold(key, "Connection") {
			continue
		}
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}
