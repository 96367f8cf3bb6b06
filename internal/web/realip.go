package web

import (
	"net"
	"net/http"
	"strings"
)

// unknownIP is returned when no usable address can be extracted from a request.
const unknownIP = "unknown"

// clientIP extracts the visitor address from a request. Proxy headers take
// precedence over the transport peer, in this order: X-Real-IP, the first
// entry of X-Forwarded-For, CF-Connecting-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if ip := normalizeIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := normalizeIP(first); ip != "" {
			return ip
		}
	}
	if ip := normalizeIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	if ip := normalizeIP(host); ip != "" {
		return ip
	}
	return unknownIP
}

// normalizeIP trims whitespace and strips the IPv4-mapped IPv6 prefix so
// that "::ffff:1.2.3.4" and "1.2.3.4" produce the same fingerprint.
func normalizeIP(raw string) string {
	ip := strings.TrimSpace(raw)
	ip = strings.TrimPrefix(ip, "::ffff:")
	return ip
}
