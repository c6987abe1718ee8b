// Package ipchecker validates that a request originates from a trusted
// subnet. It guards operational endpoints such as /metrics.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPChecker checks client IPs against a trusted subnet given in CIDR
// notation. An empty subnet disables the checker, meaning nothing is trusted.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New parses the trusted subnet. An empty string yields a disabled checker.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, subnet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("parsing trusted subnet %q: %w", trustedSubnet, err)
	}

	return &IPChecker{trustedSubnet: subnet}, nil
}

// IsTrusted reports whether the request's client IP belongs to the trusted
// subnet. The X-Real-IP header takes precedence over the remote address.
func (c *IPChecker) IsTrusted(request *http.Request) bool {
	if c.trustedSubnet == nil {
		return false
	}

	ip := clientIP(request)
	if ip == nil {
		return false
	}

	return c.trustedSubnet.Contains(ip)
}

// RequireTrusted rejects requests from outside the trusted subnet with 403.
func (c *IPChecker) RequireTrusted(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !c.IsTrusted(request) {
			response.WriteHeader(http.StatusForbidden)
			return
		}
		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

func clientIP(request *http.Request) net.IP {
	if realIP := strings.TrimSpace(request.Header.Get("X-Real-IP")); realIP != "" {
		return net.ParseIP(realIP)
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return net.ParseIP(request.RemoteAddr)
	}

	return net.ParseIP(host)
}
