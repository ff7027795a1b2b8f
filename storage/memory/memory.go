// Package memory provides a thread-safe in-memory implementation of
// storage.ObjectStore. Suitable for tests and demos; content lives in
// process memory, file transfer still goes through the filesystem.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmcleod/certpipe/storage"
)

type object struct {
	data     []byte
	metadata map[string]string
}

// Store is a mutex-guarded in-memory storage.ObjectStore.
type Store struct {
	mu      sync.RWMutex
	objects map[string]*object
}

var _ storage.ObjectStore = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{objects: make(map[string]*object)}
}

// Put seeds an object directly with the given metadata.
func (s *Store) Put(key string, data []byte, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	s.objects[key] = &object{data: append([]byte(nil), data...), metadata: md}
}

// Corrupt replaces an object's bytes without touching its metadata,
// simulating remote content drifting from its checksum tag.
func (s *Store) Corrupt(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[key]; ok {
		obj.data = append([]byte(nil), data...)
	}
}

// Bytes returns a copy of the stored content, or nil if absent.
func (s *Store) Bytes(key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil
	}
	return append([]byte(nil), obj.data...)
}

func (s *Store) FetchChecksum(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	for name, value := range obj.metadata {
		if strings.EqualFold(name, storage.ChecksumMetadataKey) {
			return value, nil
		}
	}
	return "", fmt.Errorf("%s: %w", key, storage.ErrChecksumAttributeMissing)
}

func (s *Store) Download(_ context.Context, key, destPath string) error {
	s.mu.RLock()
	obj, ok := s.objects[key]
	var data []byte
	if ok {
		data = append([]byte(nil), obj.data...)
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o600)
}

func (s *Store) Upload(_ context.Context, key, localPath, checksum string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Stored with a canonicalized key casing to exercise the
	// case-insensitive lookup contract.
	s.objects[key] = &object{
		data:     data,
		metadata: map[string]string{"Sha256": checksum},
	}
	return nil
}
