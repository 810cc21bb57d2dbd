package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeSelfSignedCert(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "ldms-registry-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestNewTLSManagerLoadsCertificate(t *testing.T) {
	certPath, keyPath := writeSelfSignedCert(t)
	tm, err := NewTLSManager(certPath, keyPath)
	require.NoError(t, err)

	cert, err := tm.GetCertificate(nil)
	require.NoError(t, err)
	require.NotNil(t, cert)
}

func TestNewTLSManagerRejectsMissingFiles(t *testing.T) {
	_, err := NewTLSManager("/no/such/cert.pem", "/no/such/key.pem")
	require.Error(t, err)
}

func TestReloadSucceedsOnUnchangedFiles(t *testing.T) {
	certPath, keyPath := writeSelfSignedCert(t)
	tm, err := NewTLSManager(certPath, keyPath)
	require.NoError(t, err)
	require.NoError(t, tm.Reload())
}

func TestTLSConfigSetsMinVersion(t *testing.T) {
	certPath, keyPath := writeSelfSignedCert(t)
	tm, err := NewTLSManager(certPath, keyPath)
	require.NoError(t, err)

	cfg := tm.TLSConfig()
	require.Equal(t, uint16(0x0303), cfg.MinVersion) // tls.VersionTLS12
	require.NotNil(t, cfg.GetCertificate)
}
