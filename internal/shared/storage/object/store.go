package object

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrInvalidKey is returned for keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrNotFound is returned by Open when nothing is stored under key.
	ErrNotFound = errors.New("object not found")
)

// Store saves and retrieves exported report documents by key.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
