package relayboard

import (
	"net"
	"strings"
)

// NormalizeAddress reduces user input to a bare host[:port]. The board
// never serves TLS, so any scheme the user pasted is discarded and all
// requests go out over plain http.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimSuffix(addr, "/")
	return addr
}

// BaseURL returns the plaintext root URL for a normalized address.
func BaseURL(addr string) string {
	return "http://" + NormalizeAddress(addr)
}

// dialAddr returns the host:port to dial for a normalized address,
// defaulting to the plaintext HTTP port.
func dialAddr(addr string) string {
	addr = NormalizeAddress(addr)
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, "80")
	}
	return addr
}
