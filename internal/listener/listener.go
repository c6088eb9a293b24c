// Package listener opens the inbound TCP listener, optionally accepting a
// PROXY protocol header from a fronting load balancer.
package listener

import (
	"fmt"
	"net"
	"time"

	proxyproto "github.com/pires/go-proxyproto"

	"hbooker-proxy/internal/config"
)

// headerTimeout bounds how long an accepted connection may take to send its
// PROXY header before it is served with the socket peer address instead.
const headerTimeout = 5 * time.Second

// Listen binds cfg.Addr(). With proxy_protocol enabled the returned listener
// reports the client address carried in the PROXY v1/v2 header as RemoteAddr.
// Connections without a header are accepted unchanged.
func Listen(cfg config.ServerConfig) (net.Listener, error) {
	addr := cfg.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if !cfg.ProxyProtocol {
		return ln, nil
	}
	return &proxyproto.Listener{
		Listener:          ln,
		ReadHeaderTimeout: headerTimeout,
	}, nil
}
