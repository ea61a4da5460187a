package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges or single addresses of trusted proxies
}

// ExtractClientIP returns the caller's address. Forwarding headers are only
// honored when the direct peer is a trusted proxy. X-Forwarded-For is walked
// right to left and the first hop that is not itself a trusted proxy wins,
// so a client cannot prepend a forged address.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if config == nil || !isTrustedProxy(remoteIP, config.TrustedProxies) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if !ValidIP(hop) {
				break
			}
			if !isTrustedProxy(hop, config.TrustedProxies) {
				return canonicalIP(hop)
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); ValidIP(xri) {
		return canonicalIP(xri)
	}

	return remoteIP
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr != "" {
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return canonicalIP(ip)
		}
		return canonicalIP(r.RemoteAddr)
	}
	return "unknown"
}

func isTrustedProxy(ip string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return false
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, entry := range trustedProxies {
		if !strings.Contains(entry, "/") {
			if proxyIP := net.ParseIP(entry); proxyIP != nil && proxyIP.Equal(clientIP) {
				return true
			}
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			continue
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}

// ValidIP reports whether s is a well-formed IPv4 or IPv6 address.
func ValidIP(s string) bool {
	return net.ParseIP(s) != nil
}

// canonicalIP rewrites s in its standard textual form so that equivalent
// spellings of one address share a ledger key. Unparseable input is returned
// unchanged.
func canonicalIP(s string) string {
	if ip := net.ParseIP(s); ip != nil {
		return ip.String()
	}
	return s
}
