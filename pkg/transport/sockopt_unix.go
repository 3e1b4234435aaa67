//go:build unix

package transport

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
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
		serr = unix.SetsockoptLinger(int(fd), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 0, Linger: 0})
		if serr != nil {
			return
		}
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	}); err != nil {
		return fmt.Errorf("Control(): %s", err)
	}
	if serr != nil {
		return fmt.Errorf("setsockopt: %s", serr)
	}

	return nil
}

// reuseControl sets SO_REUSEADDR on a listening socket and probes
// for SO_REUSEPORT. Platforms without the latter report it as an
// unsupported option, which is ignored; any other failure counts.
func reuseControl(network, address string, c syscall.RawConn) error {
	var serr error
	if err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if serr != nil {
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			if err != unix.ENOPROTOOPT && err != unix.EINVAL && err != unix.EOPNOTSUPP {
				serr = err
			}
		}
	}); err != nil {
		return fmt.Errorf("Control(): %s", err)
	}
	if serr != nil {
		return fmt.Errorf("setsockopt: %s", serr)
	}

	return nil
}
