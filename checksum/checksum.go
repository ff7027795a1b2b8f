// Package checksum computes the SHA-256 identities of stored artifacts
// and the composite version token derived from a certificate/key bundle.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// fileReadChunkSize is the buffer size used when hashing files. The
// stored checksums were produced with 64 KiB reads; the digest is
// independent of chunking but the constant is kept for parity.
const fileReadChunkSize = 64 * 1024

// Bytes returns the lowercase hex SHA-256 digest of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// File returns the lowercase hex SHA-256 digest of the file at path,
// streamed in 64 KiB chunks.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	buf := make([]byte, fileReadChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BundleVersion derives the version token for a certificate/private-key
// bundle: the SHA-256 digest of the certificate checksum concatenated
// with the private-key checksum, in that order, with no separator.
// The ordering is part of the contract with versions already stored;
// swapping the arguments yields a different token.
func BundleVersion(certChecksum, keyChecksum string) string {
	return Bytes([]byte(certChecksum + keyChecksum))
}
