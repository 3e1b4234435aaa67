package config

import (
	"context"
	"net"
)

// Dependencies contains injectable network primitives for testing
// and customization. All fields are optional and default to the
// real implementations when nil.
type Dependencies struct {
	DialContext DialContextFunc
	Listen      ListenFunc
}

// DialContextFunc is a function that opens an outbound stream.
// It returns a net.Conn to allow for mock implementations.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ListenFunc is a function that creates a listener.
// It returns a net.Listener to allow for mock implementations.
type ListenFunc func(network, address string) (net.Listener, error)

// GetDialContextFunc returns the dial function from dependencies,
// or a default implementation based on net.Dialer.
func GetDialContextFunc(deps *Dependencies) DialContextFunc {
	if deps != nil && deps.DialContext != nil {
		return deps.DialContext
	}
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, address)
	}
}
