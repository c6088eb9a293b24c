// Package model defines shared types for the proxy.
package model

import (
	"context"
	"net/http"
)

// ProxyRequest is an inbound request whose body has already been read in full.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte

	// ClientIP is the textual address of the peer, empty when unknown.
	ClientIP string
}

// ProxyResponse is an upstream response ready to be relayed to the client.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
