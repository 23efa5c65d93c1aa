package connection

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/yndnr/rediswire/internal/infra/tlsroots"
)

// TLSOptions configures a Secure connection.
type TLSOptions struct {
	// Config, when set, is used as-is (cloned) and the file fields are ignored.
	Config *tls.Config

	// CAFile is a PEM bundle of trusted roots. Empty means system roots.
	CAFile string
	// CertFile and KeyFile enable mutual TLS.
	CertFile string
	KeyFile  string
	// ReloadClientCert watches CertFile and KeyFile and picks up rotated
	// certificates without reconnecting.
	ReloadClientCert bool

	ServerName         string
	InsecureSkipVerify bool
}

// Secure is a TLS connection over TCP.
type Secure struct {
	*socket

	tlsOpts   TLSOptions
	keepAlive time.Duration

	certMu      sync.Mutex
	certWatcher *tlsroots.Watcher
}

// NewSecure creates an unconnected TLS connection to host:port. TLS
// settings come from WithTLS.
func NewSecure(host string, port int, opts ...Option) *Secure {
	o := buildOptions(opts)
	s := &Secure{
		socket:    newSocket(KindSecure, host, port, o.logger),
		tlsOpts:   o.tls,
		keepAlive: o.keepAlive,
	}
	s.dial = s.dialTLS
	return s
}

func (s *Secure) dialTLS(ctx context.Context) (net.Conn, error) {
	cfg, err := s.clientConfig()
	if err != nil {
		return nil, err
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{KeepAlive: s.keepAlive},
		Config:    cfg,
	}
	return dialer.DialContext(ctx, "tcp", s.address())
}

// Disconnect closes the socket and stops client certificate reloading.
func (s *Secure) Disconnect() {
	s.socket.Disconnect()

	s.certMu.Lock()
	defer s.certMu.Unlock()
	if s.certWatcher != nil {
		s.certWatcher.Stop()
		s.certWatcher = nil
	}
}

func (s *Secure) clientConfig() (*tls.Config, error) {
	o := s.tlsOpts
	if o.Config != nil {
		return o.Config.Clone(), nil
	}

	pool := tlsroots.NewPool()
	if o.CAFile != "" {
		pool = tlsroots.NewEmptyPool()
		if err := pool.AddCertFile(o.CAFile); err != nil {
			return nil, err
		}
	}
	cfg := pool.ClientConfig(o.ServerName, o.InsecureSkipVerify)

	if o.CertFile == "" && o.KeyFile == "" {
		return cfg, nil
	}
	if !o.ReloadClientCert {
		if err := tlsroots.LoadClientCert(cfg, o.CertFile, o.KeyFile); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	s.certMu.Lock()
	defer s.certMu.Unlock()
	if s.certWatcher == nil {
		w, err := tlsroots.NewWatcher(o.CertFile, o.KeyFile, tlsroots.WithLogger(s.logger))
		if err != nil {
			return nil, fmt.Errorf("connection: client certificate: %w", err)
		}
		w.StartAsync()
		s.certWatcher = w
	}
	s.certWatcher.Apply(cfg)
	return cfg, nil
}
