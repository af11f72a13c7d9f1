package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig names the proxy networks whose forwarding headers are trusted.
type IPConfig struct {
	TrustedProxies []string
}

// trusts reports whether ip falls inside one of the configured CIDR ranges.
// Unparseable ranges are skipped, so a bad entry narrows trust rather than
// widening it.
func (c *IPConfig) trusts(ip string) bool {
	if c == nil || len(c.TrustedProxies) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// ExtractClientIP resolves the originating client address for audit records
// and rate limit keys. X-Forwarded-For and X-Real-IP are honored only when
// the direct peer is a trusted proxy; otherwise anyone could spoof their
// address with a request header.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := peerAddr(r)
	if !config.trusts(peer) {
		return peer
	}

	// Leftmost valid entry is the original client; later entries are
	// intermediate proxies appending themselves.
	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		candidate = strings.TrimSpace(candidate)
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

// peerAddr strips the port from RemoteAddr.
func peerAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
