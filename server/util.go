package server

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/teranos/chrono/errors"
)

// newUpgrader creates a WebSocket upgrader with origin checking from config
func (s *ChronoServer) newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin validates the Origin header against server.allowed_origins.
// Requests without an Origin (CLI tools, tests) are allowed. An allowed
// origin without a port admits any port on that scheme and host.
func (s *ChronoServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	o, err := url.Parse(origin)
	if err != nil || o.Host == "" {
		return false
	}

	for _, allowed := range *s.allowedOrigins.Load() {
		if allowed == "*" {
			return true
		}
		a, err := url.Parse(allowed)
		if err != nil || a.Host == "" {
			continue
		}
		if !strings.EqualFold(a.Scheme, o.Scheme) || !strings.EqualFold(a.Hostname(), o.Hostname()) {
			continue
		}
		if a.Port() == "" || a.Port() == o.Port() {
			return true
		}
	}
	return false
}

// isPortAvailable checks if a port is available for binding
func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close() // best-effort check, the caller binds again
	return true
}

// findAvailablePort tries the requested port, then the ten ports after it.
// Port 0 asks the system for any free port.
func findAvailablePort(requestedPort int) (int, error) {
	if requestedPort == 0 || isPortAvailable(requestedPort) {
		return requestedPort, nil
	}
	for port := requestedPort + 1; port <= requestedPort+10 && port <= 65535; port++ {
		if isPortAvailable(port) {
			return port, nil
		}
	}
	return 0, errors.Newf("no available ports found (tried %d-%d)", requestedPort, requestedPort+10)
}
