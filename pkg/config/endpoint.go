package config

import (
	"fmt"
	"net"

	"github.com/fuergaosi233/tsock/pkg/format"
)

// EndpointKind discriminates the three endpoint forms a socket can
// be constructed with.
type EndpointKind int

const (
	// EndpointTCP is a host and port reachable over TCP.
	EndpointTCP EndpointKind = iota
	// EndpointUnix is a filesystem path of a Unix domain socket.
	EndpointUnix
	// EndpointExternal is a pre-opened connection supplied by the
	// caller. Host, port and path are ignored for this kind.
	EndpointExternal
)

// Family selects the address family for TCP endpoints.
type Family int

const (
	// FamilyUnspec lets the resolver pick IPv4 or IPv6.
	FamilyUnspec Family = iota
	// FamilyIPv4 restricts the endpoint to IPv4.
	FamilyIPv4
	// FamilyIPv6 restricts the endpoint to IPv6.
	FamilyIPv6
)

// Endpoint is a tagged variant describing where a socket connects
// to or listens on. The kind is decided once at construction and
// all downstream logic switches on it.
type Endpoint struct {
	kind EndpointKind

	Host   string
	Port   int
	Family Family

	Path string

	Conn net.Conn
}

// TCPEndpoint describes a TCP endpoint with an unspecified address family.
func TCPEndpoint(host string, port int) Endpoint {
	return Endpoint{kind: EndpointTCP, Host: host, Port: port}
}

// TCPEndpointFamily describes a TCP endpoint pinned to an address family.
func TCPEndpointFamily(host string, port int, family Family) Endpoint {
	return Endpoint{kind: EndpointTCP, Host: host, Port: port, Family: family}
}

// UnixEndpoint describes a Unix domain socket endpoint.
func UnixEndpoint(path string) Endpoint {
	return Endpoint{kind: EndpointUnix, Path: path}
}

// ExternalEndpoint adopts an already-open connection.
func ExternalEndpoint(conn net.Conn) Endpoint {
	return Endpoint{kind: EndpointExternal, Conn: conn}
}

// Kind returns the endpoint form chosen at construction.
func (e Endpoint) Kind() EndpointKind {
	return e.kind
}

// Network returns the network string for net.Dial / net.Listen.
func (e Endpoint) Network() string {
	switch e.kind {
	case EndpointUnix:
		return "unix"
	default:
		switch e.Family {
		case FamilyIPv4:
			return "tcp4"
		case FamilyIPv6:
			return "tcp6"
		default:
			return "tcp"
		}
	}
}

// Addr returns the dialable address for the endpoint.
func (e Endpoint) Addr() string {
	if e.kind == EndpointUnix {
		return e.Path
	}
	return format.Addr(e.Host, e.Port)
}

// String renders the endpoint for log and error messages.
func (e Endpoint) String() string {
	switch e.kind {
	case EndpointUnix:
		return "unix:" + e.Path
	case EndpointExternal:
		if e.Conn != nil && e.Conn.RemoteAddr() != nil {
			return "external:" + e.Conn.RemoteAddr().String()
		}
		return "external"
	default:
		return e.Network() + ":" + format.Addr(e.Host, e.Port)
	}
}

func (e Endpoint) validate() []error {
	var errors []error

	switch e.kind {
	case EndpointTCP:
		// port 0 is allowed on the listening side (ephemeral port)
		if e.Port < 0 || e.Port > 65535 {
			errors = append(errors, fmt.Errorf("port must be in [0, 65535], got %d", e.Port))
		}
	case EndpointUnix:
		if e.Path == "" {
			errors = append(errors, fmt.Errorf("unix socket path must not be empty"))
		}
	case EndpointExternal:
		if e.Conn == nil {
			errors = append(errors, fmt.Errorf("external endpoint requires an open connection"))
		}
	}

	return errors
}
