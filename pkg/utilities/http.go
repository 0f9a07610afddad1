package utilities

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address without port. Forwarding headers are
// only reflected when a RealIP-style middleware rewrote RemoteAddr.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
