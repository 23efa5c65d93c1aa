package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in a PEM file.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

	// ErrIncompleteKeyPair is returned when only one of cert and key is set.
	ErrIncompleteKeyPair = errors.New("tlsroots: client certificate and key must be set together")
)

// Pool manages the root certificates used to verify Redis servers.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a pool seeded with the system roots.
// If system roots cannot be loaded, it creates an empty pool.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool creates a pool that trusts nothing until CAs are added.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddCertFile adds every certificate in a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read CA file %s: %w", path, err)
	}
	return p.AddCertPEM(data)
}

// AddCertPEM adds certificates from PEM-encoded data. Non-certificate
// blocks are skipped.
func (p *Pool) AddCertPEM(pemData []byte) error {
	var added int
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		added++
	}

	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// ClientConfig returns a client TLS config verifying servers against the
// pool. An empty serverName lets crypto/tls derive it from the dialed host.
func (p *Pool) ClientConfig(serverName string, insecureSkipVerify bool) *tls.Config {
	return &tls.Config{
		RootCAs:            p.certPool,
		ServerName:         serverName,
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // opt-in for self-signed dev servers
		MinVersion:         tls.VersionTLS12,
	}
}

// LoadClientCert attaches a static client certificate to cfg.
func LoadClientCert(cfg *tls.Config, certFile, keyFile string) error {
	if certFile == "" || keyFile == "" {
		return ErrIncompleteKeyPair
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return nil
}
