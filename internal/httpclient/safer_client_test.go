package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/chrono/internal/util"
)

func TestNewSaferClient(t *testing.T) {
	client := NewSaferClient(30 * time.Second)

	require.NotNil(t, client)
	assert.Equal(t, 30*time.Second, client.Timeout)
	assert.Equal(t, 10, client.maxRedirects)
	assert.True(t, client.blockPrivateIP)
}

func TestValidateURL(t *testing.T) {
	client := NewSaferClient(30 * time.Second)

	tests := []struct {
		name        string
		url         string
		errContains string
	}{
		{"https", "https://example.com/path", ""},
		{"http", "http://example.com", ""},
		{"file scheme", "file:///etc/passwd", "scheme"},
		{"ftp scheme", "ftp://example.com", "scheme"},
		{"localhost", "http://localhost:5000/visualize", "localhost"},
		{"localhost subdomain", "http://api.localhost/", "localhost"},
		{"loopback", "http://127.0.0.1:5000", "private IP"},
		{"rfc1918", "http://192.168.1.10", "private IP"},
		{"metadata endpoint", "http://169.254.169.254/latest", "private IP"},
		{"ipv6 loopback", "http://[::1]/", "private IP"},
		{"credentials", "http://evil.com@example.com/", "credentials"},
		{"missing host", "http:///path", "hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ValidateURL(tt.url)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestIsPrivateAddr(t *testing.T) {
	tests := []struct {
		addr    string
		private bool
	}{
		{"10.1.2.3", true},
		{"172.20.0.1", true},
		{"172.32.0.1", false},
		{"100.64.0.1", true},
		{"8.8.8.8", false},
		{"::ffff:127.0.0.1", true},
		{"fe80::1", true},
		{"fd12:3456::1", true},
		{"2001:db8::1", true},
		{"2606:4700::1111", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.private, isPrivateAddr(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestOptions_AllowPrivate(t *testing.T) {
	client := NewSaferClientWithOptions(time.Second, Options{
		BlockPrivateIP: util.Ptr(false),
		MaxRedirects:   util.Ptr(2),
		UserAgent:      "chrono-test",
	})
	assert.False(t, client.blockPrivateIP)
	assert.Equal(t, 2, client.maxRedirects)

	_, err := client.ValidateURL("http://localhost:5000")
	assert.NoError(t, err)
}

func TestDo_SetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := NewSaferClientWithOptions(time.Second, Options{
		BlockPrivateIP: util.Ptr(false),
		UserAgent:      "chrono-test",
	})
	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "chrono-test", got)
}

func TestDo_BlocksPrivateTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	_, err := NewSaferClient(time.Second).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSRF")
}

func TestRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	client := NewSaferClientWithOptions(time.Second, Options{
		BlockPrivateIP: util.Ptr(false),
		MaxRedirects:   util.Ptr(3),
	})
	_, err := client.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 3 redirects")
}

func TestRedirectToDisallowedScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "file:///etc/passwd", http.StatusFound)
	}))
	defer srv.Close()

	_, err := WrapClient(srv.Client()).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect blocked")
}
