package memory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/certpipe/storage"
	"github.com/jmcleod/certpipe/storage/memory"
)

func TestFetchChecksum_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Put("root-ca.pem", []byte("cert"), map[string]string{"SHA256": "abc"})

	sum, err := store.FetchChecksum(ctx, "root-ca.pem")
	require.NoError(t, err)
	assert.Equal(t, "abc", sum)
}

func TestFetchChecksum_NotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.FetchChecksum(ctx, "missing.pem")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFetchChecksum_AttributeMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Put("root-ca.pem", []byte("cert"), map[string]string{"other": "x"})

	_, err := store.FetchChecksum(ctx, "root-ca.pem")
	assert.ErrorIs(t, err, storage.ErrChecksumAttributeMissing)
}

func TestDownload_CreatesParentDirs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Put("ca/root-ca.pem", []byte("cert"), nil)

	dest := filepath.Join(t.TempDir(), "ca", "root-ca.pem")
	require.NoError(t, store.Download(ctx, "ca/root-ca.pem", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("cert"), data)
}

func TestDownload_NotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	err := store.Download(ctx, "missing.pem", filepath.Join(t.TempDir(), "missing.pem"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpload_TagsChecksum(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	path := filepath.Join(t.TempDir(), "leaf.pem")
	require.NoError(t, os.WriteFile(path, []byte("leaf cert"), 0o600))
	require.NoError(t, store.Upload(ctx, "leaf.pem", path, "deadbeef"))

	sum, err := store.FetchChecksum(ctx, "leaf.pem")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", sum)
	assert.Equal(t, []byte("leaf cert"), store.Bytes("leaf.pem"))
}
