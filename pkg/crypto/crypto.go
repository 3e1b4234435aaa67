// Package crypto generates throwaway TLS material: a fresh CA and a
// leaf certificate signed by it. It backs the CLI's --ssl mode when
// no certificate files are configured, and the TLS test suites.
package crypto

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
)

// Material bundles a generated CA and one leaf certificate both as
// parsed objects and as PEM, so it can be used in-process or written
// to files for the path-based TLS configuration.
type Material struct {
	CAPool    *x509.CertPool
	CACertPEM []byte

	Cert    tls.Certificate
	CertPEM []byte
	KeyPEM  []byte
}

// GenerateCertificates creates a new CA and a leaf certificate valid
// for the given hosts (DNS names or IP addresses).
func GenerateCertificates(hosts ...string) (*Material, error) {
	caKeyPEM, caCertPEM, err := generateCA()
	if err != nil {
		return nil, fmt.Errorf("generateCA(): %s", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCertPEM) {
		return nil, fmt.Errorf("appending CA certificate to pool")
	}

	cert, certPEM, keyPEM, err := generateLeaf(caCertPEM, caKeyPEM, hosts)
	if err != nil {
		return nil, fmt.Errorf("generateLeaf(): %s", err)
	}

	return &Material{
		CAPool:    caPool,
		CACertPEM: caCertPEM,
		Cert:      cert,
		CertPEM:   certPEM,
		KeyPEM:    keyPEM,
	}, nil
}

// ServerConfig builds a ready-to-use server TLS configuration from
// the in-memory material, without touching the filesystem.
func (m *Material) ServerConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{m.Cert},
	}
}

// ClientConfig builds a client TLS configuration trusting the
// generated CA and verifying the peer as serverName.
func (m *Material) ClientConfig(serverName string) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    m.CAPool,
		ServerName: serverName,
	}
}

// WriteFiles writes the PEM material into dir and returns the paths
// of the certificate, key and CA files.
func (m *Material) WriteFiles(dir string) (certFile, keyFile, caFile string, err error) {
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	caFile = filepath.Join(dir, "ca.pem")

	if err = os.WriteFile(certFile, m.CertPEM, 0644); err != nil {
		return "", "", "", fmt.Errorf("writing %s: %s", certFile, err)
	}
	if err = os.WriteFile(keyFile, m.KeyPEM, 0600); err != nil {
		return "", "", "", fmt.Errorf("writing %s: %s", keyFile, err)
	}
	if err = os.WriteFile(caFile, m.CACertPEM, 0644); err != nil {
		return "", "", "", fmt.Errorf("writing %s: %s", caFile, err)
	}

	return certFile, keyFile, caFile, nil
}
