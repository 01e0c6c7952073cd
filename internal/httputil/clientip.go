// Package httputil holds small HTTP request helpers shared by the API and
// streaming layers.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the address a request originated from, for request logs
// and per-client limits. With trustProxy set, reverse-proxy headers win over
// the socket address: the leftmost X-Forwarded-For entry first, then
// X-Real-IP. A field server facing its tablets directly on the LAN should
// leave trustProxy off, since any client can forge those headers.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := proxiedClient(r.Header); ip != "" {
			return ip
		}
	}
	return remoteHost(r.RemoteAddr)
}

// proxiedClient picks the originating client out of proxy headers, or ""
// when neither header carries one.
func proxiedClient(h http.Header) string {
	entry := h.Get("X-Forwarded-For")
	if i := strings.IndexByte(entry, ','); i > 0 {
		entry = entry[:i]
	}
	if ip := strings.TrimSpace(entry); ip != "" {
		return ip
	}
	return strings.TrimSpace(h.Get("X-Real-IP"))
}

// remoteHost strips the port from a host:port socket address, tolerating
// addresses that never had one.
func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
