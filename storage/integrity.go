package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmcleod/certpipe/checksum"
)

// Verifier couples an ObjectStore with checksum verification. These
// two operations are the only points where local and remote content
// are reconciled; any failure aborts the invocation, no partial state
// is kept.
type Verifier struct {
	Store ObjectStore
}

// DownloadAndVerify downloads the object at key to destPath and fails
// with ErrIntegrityMismatch if the downloaded bytes do not hash to
// expectedChecksum.
func (v Verifier) DownloadAndVerify(ctx context.Context, key, expectedChecksum, destPath string) error {
	if err := v.Store.Download(ctx, key, destPath); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	sum, err := checksum.File(destPath)
	if err != nil {
		return err
	}
	if sum != expectedChecksum {
		return fmt.Errorf("%s: expected checksum %q, got %q: %w",
			key, expectedChecksum, sum, ErrIntegrityMismatch)
	}
	slog.Debug("downloaded artifact", "key", key, "checksum", sum)
	return nil
}

// UploadAndTag hashes the file at localPath, uploads it under key
// tagged with that checksum, and returns the checksum used.
func (v Verifier) UploadAndTag(ctx context.Context, key, localPath string) (string, error) {
	sum, err := checksum.File(localPath)
	if err != nil {
		return "", err
	}
	if err := v.Store.Upload(ctx, key, localPath, sum); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	slog.Debug("uploaded artifact", "key", key, "checksum", sum)
	return sum, nil
}
