// Package s3 implements storage.ObjectStore against any S3-compatible
// endpoint. Checksums travel as user metadata on the object; metadata
// key casing is canonicalized by the remote side, so lookups are
// case-insensitive.
package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jmcleod/certpipe/storage"
)

const defaultEndpoint = "s3.amazonaws.com"

// Config carries the connection settings for one bucket, taken from
// the request's source configuration.
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	DisableSSL      bool
}

// Store is an S3-backed storage.ObjectStore scoped to a single bucket.
type Store struct {
	client *minio.Client
	bucket string
}

var _ storage.ObjectStore = (*Store)(nil)

// New builds a Store from cfg. An empty endpoint targets AWS S3.
func New(cfg Config) (*Store, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: !cfg.DisableSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *Store) FetchChecksum(ctx context.Context, key string) (string, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return "", mapError(key, err)
	}
	for name, value := range info.UserMetadata {
		if strings.EqualFold(name, storage.ChecksumMetadataKey) {
			return value, nil
		}
	}
	return "", fmt.Errorf("%s: %w", key, storage.ErrChecksumAttributeMissing)
}

func (s *Store) Download(ctx context.Context, key, destPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, key, destPath, minio.GetObjectOptions{}); err != nil {
		return mapError(key, err)
	}
	return nil
}

func (s *Store) Upload(ctx context.Context, key, localPath, checksum string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		UserMetadata: map[string]string{storage.ChecksumMetadataKey: checksum},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func mapError(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == 404 {
		return fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", key, err)
}
