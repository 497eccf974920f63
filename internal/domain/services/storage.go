package services

import (
	"context"
	"io"
)

// BlobStore stores uploaded file bytes under opaque keys
type BlobStore interface {
	// Put stores r under a new key and returns the key and bytes written
	Put(ctx context.Context, r io.Reader, name string) (key string, size int64, err error)

	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a blob; a missing blob is not an error
	Delete(ctx context.Context, key string) error
}
