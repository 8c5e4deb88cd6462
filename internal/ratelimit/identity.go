package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// RequestInfo is the subset of an inbound request the guard needs.
type RequestInfo struct {
	Path         string
	RemoteAddr   string
	ForwardedFor string
	RealIP       string
}

// NewRequestInfo extracts RequestInfo from r using the configured header names.
// Empty header names are skipped.
func NewRequestInfo(r *http.Request, forwardedForHeader, realIPHeader string) RequestInfo {
	info := RequestInfo{
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
	}
	if forwardedForHeader != "" {
		info.ForwardedFor = r.Header.Get(forwardedForHeader)
	}
	if realIPHeader != "" {
		info.RealIP = r.Header.Get(realIPHeader)
	}
	return info
}

// ClientIdentifier derives the identity a request is counted against.
type ClientIdentifier struct {
	trustProxy bool
	whitelist  map[string]struct{}
}

// NewClientIdentifier creates an identifier. Forwarding headers are honoured
// only when trustProxy is set. Whitelisted addresses bypass all limiting.
func NewClientIdentifier(trustProxy bool, whitelist []string) *ClientIdentifier {
	wl := make(map[string]struct{}, len(whitelist))
	for _, addr := range whitelist {
		wl[normalizeIP(addr)] = struct{}{}
	}
	return &ClientIdentifier{
		trustProxy: trustProxy,
		whitelist:  wl,
	}
}

// Identify returns the client address for req. With proxy trust enabled the
// first X-Forwarded-For entry wins, then X-Real-IP, then the peer address.
func (c *ClientIdentifier) Identify(req RequestInfo) string {
	if c.trustProxy {
		if req.ForwardedFor != "" {
			first, _, _ := strings.Cut(req.ForwardedFor, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(req.RealIP); ip != "" {
			return ip
		}
	}
	return peerHost(req.RemoteAddr)
}

// IsWhitelisted reports whether id is exempt from limiting.
func (c *ClientIdentifier) IsWhitelisted(id string) bool {
	_, ok := c.whitelist[normalizeIP(id)]
	return ok
}

// peerHost strips the port from a transport address. An empty address maps
// to "unknown" so it can never collide with a whitelisted loopback address.
func peerHost(remoteAddr string) string {
	addr := strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}

func normalizeIP(s string) string {
	s = strings.TrimSpace(s)
	if ip := net.ParseIP(s); ip != nil {
		return ip.String()
	}
	return s
}
