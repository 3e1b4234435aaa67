// Package tlsconf builds ready-to-use TLS configurations from
// certificate, key and CA paths. Clients and servers get different
// default cipher sets: a permissive one for clients talking to
// arbitrary peers, a restricted modern one for servers. A prebuilt
// *tls.Config can be injected instead, bypassing all construction.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fuergaosi233/tsock/pkg/config"
)

// DefaultClientCiphers is the permissive client-side cipher list
// for TLS 1.2 and below, including CBC suites for compatibility
// with older peers. TLS 1.3 suites are not configurable and always
// available.
var DefaultClientCiphers = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
}

// RestrictedServerCiphers is the server-side default: forward-secret
// AEAD suites only.
var RestrictedServerCiphers = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// Client builds the TLS configuration for an outbound socket.
// It returns nil when opts is nil or holds neither certificate
// material nor an injected context, meaning TLS stays disabled.
// serverName is the hostname verified against the peer certificate
// unless overridden in opts.
func Client(opts *config.TLSOptions, serverName string) (*tls.Config, error) {
	if opts == nil {
		return nil, nil
	}
	if opts.Context != nil {
		return opts.Context, nil
	}
	if opts.CertFile == "" && opts.KeyFile == "" {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: DefaultClientCiphers,
		ServerName:   serverName,
	}
	if opts.ServerName != "" {
		cfg.ServerName = opts.ServerName
	}
	if len(opts.Ciphers) > 0 {
		cfg.CipherSuites = opts.Ciphers
	}

	cert, err := loadKeyPair(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, err
	}
	cfg.Certificates = []tls.Certificate{cert}

	if opts.CAFile != "" || opts.CAPath != "" {
		pool, err := loadCAs(opts.CAFile, opts.CAPath)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	if opts.SkipVerify {
		// explicit insecure mode: no peer verification, no hostname check
		cfg.InsecureSkipVerify = true
	}

	return cfg, nil
}

// Server builds the TLS configuration for a listening socket.
// It returns nil when opts is nil or holds neither a certificate
// file nor an injected context, meaning accepted streams stay plain.
func Server(opts *config.TLSOptions) (*tls.Config, error) {
	if opts == nil {
		return nil, nil
	}
	if opts.Context != nil {
		return opts.Context, nil
	}
	if opts.CertFile == "" {
		return nil, nil
	}

	if _, err := os.Stat(opts.CertFile); err != nil {
		return nil, fmt.Errorf("no such certfile found: %s", opts.CertFile)
	}

	cert, err := loadKeyPair(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: RestrictedServerCiphers,
		Certificates: []tls.Certificate{cert},
	}
	if len(opts.Ciphers) > 0 {
		cfg.CipherSuites = opts.Ciphers
	}

	if (opts.CAFile != "" || opts.CAPath != "") && !opts.SkipVerify {
		pool, err := loadCAs(opts.CAFile, opts.CAPath)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}

// loadKeyPair loads a certificate and key. An empty keyFile means
// the private key lives in the certificate file.
func loadKeyPair(certFile, keyFile string) (tls.Certificate, error) {
	if keyFile == "" {
		keyFile = certFile
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("loading key pair (%s, %s): %w", certFile, keyFile, err)
	}
	return cert, nil
}

// loadCAs builds a certificate pool from a PEM bundle file and/or a
// directory of PEM files.
func loadCAs(caFile, caPath string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	loaded := false

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file %s: %w", caFile, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no CA certificates found in %s", caFile)
		}
		loaded = true
	}

	if caPath != "" {
		entries, err := os.ReadDir(caPath)
		if err != nil {
			return nil, fmt.Errorf("reading CA directory %s: %w", caPath, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			pem, err := os.ReadFile(filepath.Join(caPath, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("reading CA certificate %s: %w", e.Name(), err)
			}
			if pool.AppendCertsFromPEM(pem) {
				loaded = true
			}
		}
	}

	if !loaded {
		return nil, fmt.Errorf("no CA certificates loaded from %q / %q", caFile, caPath)
	}

	return pool, nil
}
