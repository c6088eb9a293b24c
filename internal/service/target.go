package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"hbooker-proxy/internal/config"
)

// ErrConfigInvalid is returned when the upstream base URL cannot be used.
var ErrConfigInvalid = errors.New("invalid upstream base URL")

// Target maps inbound paths onto the fixed upstream origin.
type Target struct {
	base url.URL
}

// NewTarget parses base, which must be an absolute http or https URL with a host.
// Any path, query or fragment on base is discarded.
func NewTarget(base string) (*Target, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrConfigInvalid, base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrConfigInvalid, base)
	}

	return &Target{base: url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host}}, nil
}

// Base returns the upstream origin as a string.
func (t *Target) Base() string {
	return t.base.String()
}

// Resolve returns the upstream URL for an inbound escaped path and raw query.
// Exactly one leading "/api" is removed and the remainder is kept verbatim,
// percent-encoding included. There is no path-segment check, so "/apifoo"
// becomes "foo".
func (t *Target) Resolve(escapedPath, rawQuery string) *url.URL {
	u := t.base
	rest := strings.TrimPrefix(escapedPath, config.ProxyPrefix)
	if p, err := url.PathUnescape(rest); err == nil {
		u.Path = p
		u.RawPath = rest
	} else {
		u.Path = rest
	}
	u.RawQuery = rawQuery
	return &u
}
