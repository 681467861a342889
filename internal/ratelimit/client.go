package ratelimit

import (
	"net"
	"strings"
)

// UnknownClient is the identifier used when a request carries no address at all.
// Every such request shares one window.
const UnknownClient = "unknown"

// ClientID resolves the identifier a request is bucketed under.
// The first X-Forwarded-For entry wins when non-empty, then the peer address
// without its port, then UnknownClient.
func ClientID(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return UnknownClient
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	if host == "" {
		return UnknownClient
	}

	return host
}
