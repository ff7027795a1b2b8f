// Package storage defines the object-store abstraction that artifacts
// are read from and published to, plus the integrity primitives that
// reconcile local files with remote state. Backends live in
// subpackages; the state machine only sees ObjectStore.
package storage

import (
	"context"
	"errors"
)

// ChecksumMetadataKey is the metadata attribute name under which an
// object's SHA-256 checksum is stored. Backends match it
// case-insensitively on read, since stores may canonicalize metadata
// key casing.
const ChecksumMetadataKey = "sha256"

var (
	// ErrNotFound is returned when the referenced object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrChecksumAttributeMissing is returned when an object exists but
	// carries no checksum metadata attribute.
	ErrChecksumAttributeMissing = errors.New("checksum metadata attribute not found")

	// ErrIntegrityMismatch is returned when downloaded content does not
	// hash to the checksum the object was tagged with.
	ErrIntegrityMismatch = errors.New("downloaded content does not match expected checksum")
)

// ObjectStore is the interface to the external object store. One
// instance is scoped to a single bucket; implementations are
// constructed from the request's source configuration and hold no
// other state.
type ObjectStore interface {
	// FetchChecksum returns the checksum metadata attribute of the
	// object at key, looked up case-insensitively.
	FetchChecksum(ctx context.Context, key string) (string, error)

	// Download writes the object's bytes to destPath, creating parent
	// directories as needed.
	Download(ctx context.Context, key string, destPath string) error

	// Upload stores the file at localPath under key and tags it with
	// checksum under ChecksumMetadataKey.
	Upload(ctx context.Context, key string, localPath string, checksum string) error
}

// ObjectKey joins a configured key prefix with a file name. With an
// empty prefix the file name is the key.
func ObjectKey(prefix, name string) string {
	if prefix != "" {
		return prefix + "/" + name
	}
	return name
}
