package pki

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRConfigFrom_CA(t *testing.T) {
	req := SigningRequest{
		CommonName: "Example Root CA",
		Key:        KeySpec{Algorithm: "ecdsa", Size: 256},
		Expiry:     "87600h",
		PathLength: 1,
	}
	cfg := csrConfigFrom(req, true)
	assert.Equal(t, "Example Root CA", cfg.CN)
	require.NotNil(t, cfg.CA)
	assert.Equal(t, "87600h", cfg.CA.Expiry)
	assert.Equal(t, 1, cfg.CA.PathLength)
	assert.NotNil(t, cfg.Names)
}

func TestCSRConfigFrom_Leaf(t *testing.T) {
	req := SigningRequest{
		CommonName: "svc.example.com",
		Key:        KeySpec{Algorithm: "ecdsa", Size: 256},
		Expiry:     "8760h",
		Hosts:      []string{"svc.example.com", "10.0.0.1"},
	}
	cfg := csrConfigFrom(req, false)
	assert.Nil(t, cfg.CA)
	assert.Equal(t, []string{"svc.example.com", "10.0.0.1"}, cfg.Hosts)
}

func TestSigningConfigFor_Intermediate(t *testing.T) {
	cfg := signingConfigFor(profileIntermediate, SigningRequest{Expiry: "43800h", PathLength: 0})
	p, ok := cfg.Signing.Profiles[profileIntermediate]
	require.True(t, ok)
	assert.Equal(t, "43800h", p.Expiry)
	require.NotNil(t, p.CAConstraint)
	assert.True(t, p.CAConstraint.IsCA)
	assert.Equal(t, 0, p.CAConstraint.MaxPathLen)
	assert.Contains(t, p.Usages, "cert sign")
}

func TestSigningConfigFor_Leaf(t *testing.T) {
	usages := []string{"signing", "server auth"}
	cfg := signingConfigFor(profileLeaf, SigningRequest{Expiry: "8760h", Usages: usages})
	p := cfg.Signing.Profiles[profileLeaf]
	assert.Equal(t, usages, p.Usages)
	assert.Nil(t, p.CAConstraint)
}

func TestWriteKeyPair(t *testing.T) {
	dir := t.TempDir()
	out := []byte(`{"cert":"CERT PEM\n","key":"KEY PEM\n","csr":"CSR PEM\n"}`)

	pair, err := writeKeyPair(out, dir, "root-ca")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "root-ca.pem"), pair.CertPath)
	assert.Equal(t, filepath.Join(dir, "root-ca-key.pem"), pair.KeyPath)

	cert, err := os.ReadFile(pair.CertPath)
	require.NoError(t, err)
	assert.Equal(t, "CERT PEM\n", string(cert))

	key, err := os.ReadFile(pair.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, "KEY PEM\n", string(key))

	info, err := os.Stat(pair.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteKeyPair_MissingKey(t *testing.T) {
	_, err := writeKeyPair([]byte(`{"cert":"CERT"}`), t.TempDir(), "root-ca")
	assert.ErrorIs(t, err, ErrEngineFailed)
}

func TestWriteKeyPair_Garbage(t *testing.T) {
	_, err := writeKeyPair([]byte("not json"), t.TempDir(), "root-ca")
	assert.ErrorIs(t, err, ErrEngineFailed)
}

func TestWriteCert_PreservesKeyFile(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "leaf.pem")
	keyPath := filepath.Join(dir, "leaf-key.pem")
	require.NoError(t, os.WriteFile(certPath, []byte("OLD CERT"), 0o644))
	require.NoError(t, os.WriteFile(keyPath, []byte("KEY"), 0o600))

	require.NoError(t, writeCert([]byte(`{"cert":"NEW CERT"}`), certPath))

	cert, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, "NEW CERT", string(cert))

	key, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Equal(t, "KEY", string(key))
}

func TestParseCertInfo(t *testing.T) {
	out := []byte(`{
		"subject": {"common_name": "svc.example.com"},
		"sans": ["a.example.com", "b.example.com"],
		"not_before": "2026-01-02T15:04:05Z",
		"not_after": "2027-01-02T15:04:05Z"
	}`)
	info, err := parseCertInfo(out)
	require.NoError(t, err)
	assert.Equal(t, "svc.example.com", info.CommonName)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, info.Hosts)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), info.NotBefore)
	assert.Equal(t, time.Date(2027, 1, 2, 15, 4, 5, 0, time.UTC), info.NotAfter)
}

func TestParseCertInfo_Garbage(t *testing.T) {
	_, err := parseCertInfo([]byte("cfssl exploded"))
	assert.ErrorIs(t, err, ErrEngineFailed)
}

func TestTimeUntilExpiration(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ci := CertInfo{NotAfter: now.Add(45 * 24 * time.Hour)}
	assert.Equal(t, 45*24*time.Hour, ci.TimeUntilExpiration(now))
}
