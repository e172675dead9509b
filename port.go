package vibrio

import (
	"fmt"
	"net"
)

// FindOpenPort returns a TCP port not currently in use on the system. The
// port is obtained by binding to port 0 and reading back the OS-assigned
// port; the listener is released before returning, so the port is free for
// the server executable to claim.
func FindOpenPort() (int, error) {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, fmt.Errorf("allocating port: %w", err)
	}
	defer func() { _ = ln.Close() }()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address type %T", ln.Addr())
	}

	return addr.Port, nil
}
