package checksum_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/certpipe/checksum"
)

func TestBytes(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		checksum.Bytes(nil))
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		checksum.Bytes([]byte("hello world")))
}

func TestBytes_Idempotent(t *testing.T) {
	assert.Equal(t, checksum.Bytes([]byte("certpipe")), checksum.Bytes([]byte("certpipe")))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.pem")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

	sum, err := checksum.File(path)
	require.NoError(t, err)
	assert.Equal(t, checksum.Bytes([]byte("hello world")), sum)

	again, err := checksum.File(path)
	require.NoError(t, err)
	assert.Equal(t, sum, again)
}

func TestFile_LargerThanOneChunk(t *testing.T) {
	// 64 KiB read buffer; three chunks plus a partial tail.
	data := make([]byte, 3*64*1024+17)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "big.pem")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	sum, err := checksum.File(path)
	require.NoError(t, err)
	assert.Equal(t, checksum.Bytes(data), sum)
}

func TestFile_Missing(t *testing.T) {
	_, err := checksum.File(filepath.Join(t.TempDir(), "nope.pem"))
	assert.Error(t, err)
}

func TestBundleVersion_OrderSensitive(t *testing.T) {
	a := checksum.Bytes([]byte("cert"))
	b := checksum.Bytes([]byte("key"))
	assert.NotEqual(t, checksum.BundleVersion(a, b), checksum.BundleVersion(b, a))
}

func TestBundleVersion_KnownValue(t *testing.T) {
	certSum := strings.Repeat("a", 64)
	keySum := strings.Repeat("b", 64)
	// SHA-256 of the literal 128-character concatenation, precomputed
	// outside this codebase.
	assert.Equal(t,
		"fa0dafbf43f1f551e536353e9d1a942a8e86e41a0b58dfeaf264ef217f6b862a",
		checksum.BundleVersion(certSum, keySum))
}
