package tlsroots

import (
	"bytes"
	"crypto/tls"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "client.crt")
	keyFile := filepath.Join(tmpDir, "client.key")
	generateTestCertAndKey(t, certFile, keyFile)

	w, err := NewWatcher(certFile, keyFile)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	cert, err := w.GetClientCertificate(nil)
	if err != nil {
		t.Fatalf("GetClientCertificate() error = %v", err)
	}
	if cert == nil {
		t.Fatal("GetClientCertificate() returned nil")
	}
}

func TestNewWatcher_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "client.crt")
	keyFile := filepath.Join(tmpDir, "client.key")
	os.WriteFile(certFile, []byte("invalid"), 0644)
	os.WriteFile(keyFile, []byte("invalid"), 0600)

	if _, err := NewWatcher(certFile, keyFile); err == nil {
		t.Error("NewWatcher() expected error for invalid certificate")
	}
	if _, err := NewWatcher("/nonexistent/cert.pem", "/nonexistent/key.pem"); err == nil {
		t.Error("NewWatcher() expected error for nonexistent files")
	}
	if _, err := NewWatcher(certFile, ""); !errors.Is(err, ErrIncompleteKeyPair) {
		t.Errorf("NewWatcher() error = %v, want ErrIncompleteKeyPair", err)
	}
}

func TestWatcher_Apply(t *testing.T) {
	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "client.crt")
	keyFile := filepath.Join(tmpDir, "client.key")
	generateTestCertAndKey(t, certFile, keyFile)

	w, err := NewWatcher(certFile, keyFile)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	cfg := &tls.Config{Certificates: []tls.Certificate{{}}}
	w.Apply(cfg)
	if cfg.Certificates != nil {
		t.Error("Apply() should clear static certificates")
	}
	if cfg.GetClientCertificate == nil {
		t.Fatal("Apply() did not set GetClientCertificate")
	}
	cert, err := cfg.GetClientCertificate(&tls.CertificateRequestInfo{})
	if err != nil || cert == nil {
		t.Errorf("GetClientCertificate() = %v, %v", cert, err)
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "client.crt")
	keyFile := filepath.Join(tmpDir, "client.key")
	generateTestCertAndKey(t, certFile, keyFile)

	w, err := NewWatcher(certFile, keyFile,
		WithLogger(slog.Default()),
		WithDebounce(100*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	w.StartAsync()
	time.Sleep(50 * time.Millisecond)

	w.Stop()
	w.Stop()
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "client.crt")
	keyFile := filepath.Join(tmpDir, "client.key")
	generateTestCertAndKey(t, certFile, keyFile)

	w, err := NewWatcher(certFile, keyFile, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	initial, _ := w.GetClientCertificate(nil)

	w.StartAsync()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	generateTestCertAndKey(t, certFile, keyFile)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		cur, _ := w.GetClientCertificate(nil)
		if !bytes.Equal(cur.Certificate[0], initial.Certificate[0]) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("certificate was not reloaded after the files changed")
}

func TestWatcher_Options(t *testing.T) {
	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "client.crt")
	keyFile := filepath.Join(tmpDir, "client.key")
	generateTestCertAndKey(t, certFile, keyFile)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w, err := NewWatcher(certFile, keyFile,
		WithLogger(logger),
		WithDebounce(200*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.logger != logger {
		t.Error("WithLogger() option not applied")
	}
	if w.debounce != 200*time.Millisecond {
		t.Errorf("WithDebounce() option not applied, got %v", w.debounce)
	}
}
