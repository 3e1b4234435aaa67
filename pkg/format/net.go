// Package format contains small helpers for rendering network
// addresses consistently across log output and error messages.
package format

import (
	"fmt"
	"strings"
)

// Addr renders host and port as a dialable address, bracketing
// IPv6 hosts.
func Addr(host string, port int) string {
	if strings.ContainsAny(host, ":") { // IPv6
		return fmt.Sprintf("[%s]:%d", host, port)
	}
	return fmt.Sprintf("%s:%d", host, port)
}
