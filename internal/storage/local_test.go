package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())

	require.NoError(t, store.Put(ctx, "scenes/a.tar.zst", strings.NewReader("archive"), 7, nil))
	require.NoError(t, store.Put(ctx, ManifestKey("scenes/a.tar.zst"), strings.NewReader("{}"), 2, nil))

	ok, err := store.Exists(ctx, "scenes/a.tar.zst")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Get(ctx, "scenes/a.tar.zst")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "archive", string(data))

	objects, err := store.List(ctx, "scenes")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "scenes/a.tar.zst", objects[0].Key)
	assert.False(t, objects[0].IsManifest)
	assert.True(t, objects[1].IsManifest)

	require.NoError(t, store.Delete(ctx, "scenes/a.tar.zst"))
	ok, err = store.Exists(ctx, "scenes/a.tar.zst")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store := NewLocal(t.TempDir())
	for _, key := range []string{"../outside", "/etc/passwd", ""} {
		err := store.Put(context.Background(), key, strings.NewReader("x"), 1, nil)
		assert.Error(t, err, key)
	}
}

func TestLocalListMissingPrefix(t *testing.T) {
	objects, err := NewLocal(t.TempDir()).List(context.Background(), "nothing/here")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalMissingKeysAreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewLocal(t.TempDir())

	_, err := store.Get(ctx, "scenes/missing.tar")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Stat(ctx, "scenes/missing.tar")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "scenes/missing.tar"), ErrNotFound)
}
