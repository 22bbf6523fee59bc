// Package storage persists uploaded artifact bytes. Keys are
// caller-provided, "<user-id>/<stored-name>"; a store never overwrites an
// existing key, so naming collisions must be resolved before Save.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectExists = errors.New("object already exists")

type ArtifactStore interface {
	// Save writes the object under key and returns its size in bytes.
	// Fails with ErrObjectExists when the key is already taken.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Backend() string
}
