// Package netutil holds small networking helpers for the HTTP transport.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrNoAvailablePort is returned when every probed port is taken.
var ErrNoAvailablePort = errors.New("no available port")

// ListenAvailable binds start, start+1, ... for at most attempts ports on
// host and returns the listener of the first one that binds. The caller owns
// the listener; the port is never released between probing and serving.
func ListenAvailable(host string, start, attempts int) (net.Listener, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if start <= 0 || start > 65535 {
		return nil, fmt.Errorf("invalid start port %d", start)
	}

	for port := start; port < start+attempts && port <= 65535; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		return ln, nil
	}
	return nil, fmt.Errorf("%w on %s in %d..%d", ErrNoAvailablePort, host, start, start+attempts-1)
}

// Port returns the TCP port ln is bound to, or 0.
func Port(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
