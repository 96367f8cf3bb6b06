package cloak

import (
	"net"
	"strings"
)

// botPatterns is the catalogue of user-agent substrings associated with
// automation tooling: HTTP client libraries, scripted fetchers,
// headless-browser markers and generic crawler tokens. Matched
// case-insensitively.
var botPatterns = []string{
	"curl",
	"wget",
	"python-requests",
	"go-http-client",
	"libwww-perl",
	"bot",
	"spider",
	"crawler",
	"scrapy",
	"httpclient",
	"java",
	"scan",
	"headless",
	"phantomjs",
	"node-fetch",
	"axios",
	"postman",
}

// IsBotUserAgent reports whether the user agent matches a known automation
// pattern.
func IsBotUserAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, pattern := range botPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}

// IsSuspiciousIP reports whether the IP belongs to a loopback or private
// network range (IPv4 loopback, the three RFC 1918 ranges, IPv6 loopback and
// the IPv6 unique-local prefix). Internal reviewers and automated scanners
// frequently originate from such addresses when proxied through internal
// infrastructure. Unparseable input is not suspicious by itself.
func IsSuspiciousIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
