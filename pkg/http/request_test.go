package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/vestibule/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		proxies    []string
		want       string
	}{
		{
			name:       "direct connection ignores forwarding headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4, 5.6.7.8",
			xRealIP:    "192.168.1.1",
			proxies:    []string{"10.0.0.0/8", "127.0.0.1/32"},
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy forwards client address",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42",
			proxies:    []string{"10.0.0.0/8"},
			want:       "203.0.113.42",
		},
		{
			name:       "forged leftmost hop is skipped",
			remoteAddr: "10.0.0.5:54321",
			xff:        "6.6.6.6, 203.0.113.42, 10.0.0.7",
			proxies:    []string{"10.0.0.0/8"},
			want:       "203.0.113.42",
		},
		{
			name:       "single address proxy entry",
			remoteAddr: "10.1.1.1:80",
			xff:        "198.51.100.9",
			proxies:    []string{"10.1.1.1"},
			want:       "198.51.100.9",
		},
		{
			name:       "falls back to X-Real-IP",
			remoteAddr: "10.0.0.5:54321",
			xRealIP:    "203.0.113.50",
			proxies:    []string{"10.0.0.0/8"},
			want:       "203.0.113.50",
		},
		{
			name:       "ipv6 proxy",
			remoteAddr: "[::1]:54321",
			xff:        "2001:db8::1",
			proxies:    []string{"::1/128"},
			want:       "2001:db8::1",
		},
		{
			name:       "invalid cidr is ignored",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			proxies:    []string{"invalid-cidr-range"},
			want:       "203.0.113.10",
		},
		{
			name:       "ipv6 forwarded hop is canonicalised",
			remoteAddr: "10.0.0.5:54321",
			xff:        "2001:DB8:0:0:0:0:0:1",
			proxies:    []string{"10.0.0.0/8"},
			want:       "2001:db8::1",
		},
		{
			name:       "ipv6 X-Real-IP is canonicalised",
			remoteAddr: "10.0.0.5:54321",
			xRealIP:    "2001:0db8::0001",
			proxies:    []string{"10.0.0.0/8"},
			want:       "2001:db8::1",
		},
		{
			name:       "ipv6 peer is canonicalised",
			remoteAddr: "[2001:DB8::1]:54321",
			want:       "2001:db8::1",
		},
		{
			name:       "garbage forwarded value falls back to peer",
			remoteAddr: "10.0.0.5:54321",
			xff:        "not-an-ip",
			proxies:    []string{"10.0.0.0/8"},
			want:       "10.0.0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			got := pkghttp.ExtractClientIP(req, &pkghttp.IPConfig{TrustedProxies: tt.proxies})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractClientIP_NilConfig(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, nil))
}

func TestValidIP(t *testing.T) {
	assert.True(t, pkghttp.ValidIP("192.0.2.1"))
	assert.True(t, pkghttp.ValidIP("2001:db8::1"))
	assert.False(t, pkghttp.ValidIP(""))
	assert.False(t, pkghttp.ValidIP("unknown"))
	assert.False(t, pkghttp.ValidIP("999.1.1.1"))
}
