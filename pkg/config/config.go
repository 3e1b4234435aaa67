// Package config holds the configuration surface of the transport
// layer: endpoint descriptions, timeout policies, TLS material and
// injectable dependencies for tests.
package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/fuergaosi233/tsock/pkg/log"
)

// Client configures an outbound transport socket.
//
// Timeouts are given in integer milliseconds; 0 means no timeout.
// If only one of SocketTimeout/ConnectTimeout is set, the other
// defaults to it (see Timeouts).
type Client struct {
	Endpoint Endpoint

	SocketTimeout  int // I/O timeout in ms, 0 = block indefinitely
	ConnectTimeout int // connect timeout in ms, inherits SocketTimeout if unset

	TLS *TLSOptions

	Logger *log.Logger
	Deps   *Dependencies
}

// Validate checks the client configuration and returns all problems found.
func (c *Client) Validate() []error {
	errors := c.Endpoint.validate()

	if c.Endpoint.Kind() == EndpointTCP && c.Endpoint.Port == 0 {
		errors = append(errors, fmt.Errorf("port must not be 0 when connecting"))
	}
	if c.SocketTimeout < 0 {
		errors = append(errors, fmt.Errorf("socket timeout must not be negative"))
	}
	if c.ConnectTimeout < 0 {
		errors = append(errors, fmt.Errorf("connect timeout must not be negative"))
	}

	return errors
}

// Timeouts resolves the configured millisecond values into the
// concrete policy used by the socket.
func (c *Client) Timeouts() Timeouts {
	return ResolveTimeouts(c.ConnectTimeout, c.SocketTimeout)
}

// DefaultBacklog is the listen backlog requested when none is configured.
const DefaultBacklog = 128

// Server configures a listening transport socket. It is owned by
// exactly one listener and must not be shared.
type Server struct {
	Endpoint Endpoint

	// Backlog is the requested listen queue length. The Go runtime
	// manages the actual backlog, so this value is advisory.
	Backlog int

	ClientTimeout int // per-connection handler budget in ms, 0 = unlimited

	TLS *TLSOptions

	Logger *log.Logger
	Deps   *Dependencies
}

// Validate checks the server configuration and returns all problems found.
func (s *Server) Validate() []error {
	errors := s.Endpoint.validate()

	if s.Endpoint.Kind() == EndpointExternal {
		errors = append(errors, fmt.Errorf("cannot listen on an external endpoint"))
	}
	if s.Backlog < 0 {
		errors = append(errors, fmt.Errorf("backlog must not be negative"))
	}
	if s.ClientTimeout < 0 {
		errors = append(errors, fmt.Errorf("client timeout must not be negative"))
	}

	return errors
}

// ClientTimeoutDuration returns the handler budget as a duration,
// zero meaning unlimited.
func (s *Server) ClientTimeoutDuration() time.Duration {
	if s.ClientTimeout <= 0 {
		return 0
	}
	return time.Duration(s.ClientTimeout) * time.Millisecond
}

// TLSOptions describes the TLS material for one side of a
// connection. A nil *TLSOptions, or one without certificate
// material and without an injected Context, disables TLS entirely.
type TLSOptions struct {
	// SkipVerify disables peer certificate verification and
	// hostname checking. This is an explicit insecure mode; the
	// zero value keeps validation enabled.
	SkipVerify bool

	CAFile string // PEM bundle of trusted CAs
	CAPath string // directory of PEM CA certificates

	CertFile string // certificate chain in PEM format
	KeyFile  string // private key, read from CertFile if empty

	// Ciphers overrides the default cipher suites for TLS 1.2 and
	// below. Client and server use different defaults when unset.
	Ciphers []uint16

	// ServerName is the hostname expected in the peer certificate.
	// Clients default it to the endpoint host.
	ServerName string

	// Context bypasses all derived construction and is used as-is.
	// The caller takes full responsibility for it.
	Context *tls.Config
}

// Timeouts is the resolved timeout policy of a socket: two concrete
// durations, possibly equal, with zero meaning no timeout.
type Timeouts struct {
	Connect time.Duration
	IO      time.Duration
}

// ResolveTimeouts converts millisecond values into a concrete
// policy. A zero value inherits the other timeout, so that setting
// only one knob bounds both connect and I/O.
func ResolveTimeouts(connectMS, ioMS int) Timeouts {
	connect := msToDuration(connectMS)
	io := msToDuration(ioMS)

	if connect == 0 {
		connect = io
	}
	if io == 0 {
		io = connect
	}

	return Timeouts{Connect: connect, IO: io}
}

func msToDuration(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
