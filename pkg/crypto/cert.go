package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"net"
	"time"
)

// generateLeaf creates a certificate signed by the provided CA,
// valid for the given hosts. Hosts that parse as IP addresses go
// into the IP SANs, everything else into the DNS SANs.
func generateLeaf(caCertPEM, caKeyPEM []byte, hosts []string) (tls.Certificate, []byte, []byte, error) {
	var out tls.Certificate

	caKeyDER, _ := pem.Decode(caKeyPEM)
	if caKeyDER == nil {
		return out, nil, nil, fmt.Errorf("failed to decode PEM block from key")
	}
	caKey, err := x509.ParseECPrivateKey(caKeyDER.Bytes)
	if err != nil {
		return out, nil, nil, fmt.Errorf("x509.ParseECPrivateKey(caKey): %s", err)
	}

	caCertDER, _ := pem.Decode(caCertPEM)
	if caCertDER == nil {
		return out, nil, nil, fmt.Errorf("failed to decode PEM block from cert")
	}
	caCert, err := x509.ParseCertificate(caCertDER.Bytes)
	if err != nil {
		return out, nil, nil, fmt.Errorf("x509.ParseCertificate(caCert): %s", err)
	}

	key, err := ecdsa.GenerateKey(caCert.PublicKey.(*ecdsa.PublicKey).Curve, rand.Reader)
	if err != nil {
		return out, nil, nil, fmt.Errorf("failed to generate key pair: %v", err)
	}

	commonName, err := generateRandomString(8)
	if err != nil {
		return out, nil, nil, fmt.Errorf("generating random common name: %s", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return out, nil, nil, fmt.Errorf("generating serial: %s", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	cert, err := x509.CreateCertificate(rand.Reader, &tmpl, caCert, &key.PublicKey, caKey)
	if err != nil {
		return out, nil, nil, fmt.Errorf("failed to create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: cert,
	})

	b, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return out, nil, nil, fmt.Errorf("unable to marshal ECDSA private key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: b})

	out, err = tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return out, nil, nil, fmt.Errorf("tls.X509KeyPair(cert, key): %s", err)
	}

	return out, certPEM, keyPEM, nil
}
