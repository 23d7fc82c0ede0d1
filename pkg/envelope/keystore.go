package envelope

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// KeyStore persists wrapped record keys. Entries are write-once.
type KeyStore interface {
	// Create stores blob under id, failing with ErrKeyExists if id is taken.
	Create(ctx context.Context, id string, blob []byte) error
	// Get returns the blob for id or ErrKeyNotFound.
	Get(ctx context.Context, id string) ([]byte, error)
}

// FileKeyStore keeps one file per id in a flat directory.
type FileKeyStore struct {
	Dir string
}

// NewFileKeyStore creates dir if needed.
func NewFileKeyStore(dir string) (*FileKeyStore, error) {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("envelope: create key dir: %w", err)
	}
	return &FileKeyStore{Dir: dir}, nil
}

// Create writes to a temp file then hard links it into place. The link
// fails if the target exists, so a partially written key is never visible
// and an existing key is never replaced.
func (s *FileKeyStore) Create(_ context.Context, id string, blob []byte) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrKeyExists
		}
		return err
	}
	return nil
}

func (s *FileKeyStore) Get(_ context.Context, id string) ([]byte, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, ErrKeyNotFound
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return blob, nil
}

// path only accepts canonical UUIDs so ids can never escape Dir.
func (s *FileKeyStore) path(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return "", fmt.Errorf("envelope: invalid key id %q", id)
	}
	return filepath.Join(s.Dir, id), nil
}
