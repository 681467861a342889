package ratelimit_test

import (
	"testing"

	"github.com/serroba/persona-api/internal/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestClientID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		expected     string
	}{
		{
			name:         "first forwarded entry wins over peer address",
			forwardedFor: "9.9.9.9, 10.0.0.1",
			remoteAddr:   "192.168.1.1:12345",
			expected:     "9.9.9.9",
		},
		{
			name:         "single forwarded entry is trimmed",
			forwardedFor: "  203.0.113.195  ",
			remoteAddr:   "192.168.1.1:12345",
			expected:     "203.0.113.195",
		},
		{
			name:         "empty first forwarded entry falls back to peer",
			forwardedFor: " , 10.0.0.1",
			remoteAddr:   "192.168.1.1:12345",
			expected:     "192.168.1.1",
		},
		{
			name:       "peer address without port is used as is",
			remoteAddr: "192.168.1.1",
			expected:   "192.168.1.1",
		},
		{
			name:       "ipv6 peer address drops the port",
			remoteAddr: "[2001:db8::1]:443",
			expected:   "2001:db8::1",
		},
		{
			name:     "no address at all is unknown",
			expected: ratelimit.UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, ratelimit.ClientID(tt.forwardedFor, tt.remoteAddr))
		})
	}
}
