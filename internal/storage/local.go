package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dataroom/internal/domain"
	"github.com/google/uuid"
)

// LocalStorage keeps blobs on the local disk under BaseDir.
// Keys are "<uuid><ext>" so user-supplied names never reach the filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates the base directory if needed
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{BaseDir: baseDir}, nil
}

// Put streams r to a new blob
func (s *LocalStorage) Put(ctx context.Context, r io.Reader, name string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	out, err := os.CreateTemp(s.BaseDir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create blob: %w", err)
	}
	tmp := out.Name()

	written, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", 0, fmt.Errorf("write blob: %w", err)
	}

	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return "", 0, fmt.Errorf("store blob: %w", err)
	}

	return key, written, nil
}

// Open returns a reader over a stored blob
func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("blob %q: %w", key, domain.ErrNotFound)
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %q: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Delete removes a blob; missing blobs are ignored
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return nil
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.BaseDir, key)
}

// validKey rejects keys that could escape BaseDir
func validKey(key string) bool {
	return key != "" && filepath.Base(key) == key && !strings.HasPrefix(key, ".")
}
