package auth

import (
	"crypto/tls"
	"fmt"
	"sync"
)

// TLSManager serves the certificate pair named by spec §6.6's
// keyfile/certfile. Reload swaps in a re-read pair while serving;
// nothing in this module calls Reload after NewTLSManager.
// Trimmed from the teacher's TLSManager: no client-cert verification
// knob, since the HTTP API here has no mTLS requirement distinct from
// the already-pluggable auth schemes.
type TLSManager struct {
	certFile, keyFile string
	mu                sync.RWMutex
	cert              *tls.Certificate
}

// NewTLSManager loads certFile/keyFile once at startup.
func NewTLSManager(certFile, keyFile string) (*TLSManager, error) {
	tm := &TLSManager{certFile: certFile, keyFile: keyFile}
	if err := tm.Reload(); err != nil {
		return nil, err
	}
	return tm, nil
}

// Reload re-reads the certificate pair from disk.
func (tm *TLSManager) Reload() error {
	cert, err := tls.LoadX509KeyPair(tm.certFile, tm.keyFile)
	if err != nil {
		return fmt.Errorf("tls: load certificate: %w", err)
	}
	tm.mu.Lock()
	tm.cert = &cert
	tm.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate, returning the
// current certificate under lock so Reload can run concurrently with
// handshakes.
func (tm *TLSManager) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.cert, nil
}

// TLSConfig builds a *tls.Config serving this manager's certificate.
func (tm *TLSManager) TLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: tm.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}
