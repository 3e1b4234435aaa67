//go:build windows

package transport

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/windows"
)

// applyConnOptions disables lingering close and enables keep-alive
// on the connection's socket. Streams without a raw socket (TLS
// wrappers, pipes) are left alone.
func applyConnOptions(nc net.Conn) error {
	sc, ok := nc.(syscall.Conn)
	if !ok {
		return nil
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return fmt.Errorf("SyscallConn(): %s", err)
	}

	var serr error
	if err := raw.Control(func(fd uintptr) {
		serr = windows.SetsockoptLinger(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_LINGER, &windows.Linger{Onoff: 0, Linger: 0})
		if serr != nil {
			return
		}
		serr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_KEEPALIVE, 1)
	}); err != nil {
		return fmt.Errorf("Control(): %s", err)
	}
	if serr != nil {
		return fmt.Errorf("setsockopt: %s", serr)
	}

	return nil
}

// reuseControl is a no-op on Windows: SO_REUSEADDR has different
// semantics there and SO_REUSEPORT does not exist.
func reuseControl(network, address string, c syscall.RawConn) error {
	return nil
}
