package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndOpen(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	n, err := store.Save(ctx, "user-1/lease.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	rc, err := store.Open(ctx, "user-1/lease.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestLocalStore_NeverOverwrites(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "user-1/lease.pdf", strings.NewReader("first"))
	require.NoError(t, err)

	_, err = store.Save(ctx, "user-1/lease.pdf", strings.NewReader("second"))
	assert.ErrorIs(t, err, ErrObjectExists)

	rc, err := store.Open(ctx, "user-1/lease.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "first", string(data))
}

func TestLocalStore_Delete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "user-1/lease.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "user-1/lease.pdf"))

	_, err = store.Open(ctx, "user-1/lease.pdf")
	assert.Error(t, err)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete(ctx, "user-1/lease.pdf"))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, "../escape.pdf", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.Save(ctx, "/etc/passwd", strings.NewReader("x"))
	assert.Error(t, err)
}
