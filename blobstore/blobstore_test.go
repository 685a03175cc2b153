package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putString(t *testing.T, s Store, name, content string) {
	t.Helper()
	err := s.Put(context.Background(), name, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
}

func readBlob(t *testing.T, s Store, name string) string {
	t.Helper()
	blob, err := s.Open(context.Background(), name)
	require.NoError(t, err)
	defer blob.Close()
	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	return string(data)
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// 1. Missing blob
	_, err := store.Open(ctx, "nope.syldb")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, os.ErrNotExist)

	// 2. Round trip
	putString(t, store, "refs/a.syldb", "alpha")
	blob, err := store.Open(ctx, "refs/a.syldb")
	require.NoError(t, err)
	require.Equal(t, int64(5), blob.Size())
	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	require.Equal(t, "alpha", string(data))
	require.NoError(t, blob.Close())

	// 3. Overwrite
	putString(t, store, "refs/a.syldb", "alphabet")
	require.Equal(t, "alphabet", readBlob(t, store, "refs/a.syldb"))

	// 4. List with prefix, sorted
	putString(t, store, "refs/b.syldb", "beta")
	putString(t, store, "samples/x.sylsp", "xray")

	names, err := store.List(ctx, "refs/")
	require.NoError(t, err)
	require.Equal(t, []string{"refs/a.syldb", "refs/b.syldb"}, names)

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"refs/a.syldb", "refs/b.syldb", "samples/x.sylsp"}, names)

	// 5. Delete is idempotent
	require.NoError(t, store.Delete(ctx, "refs/a.syldb"))
	_, err = store.Open(ctx, "refs/a.syldb")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "refs/a.syldb"))
}

func TestFetchPublish(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "db.syldb")
	require.NoError(t, os.WriteFile(src, []byte("sketch-bytes"), 0o644))

	require.NoError(t, Publish(ctx, store, src, "refs/db.syldb", nil))
	require.Equal(t, "sketch-bytes", readBlob(t, store, "refs/db.syldb"))

	dest := filepath.Join(dir, "fetched.syldb")
	require.NoError(t, Fetch(ctx, store, "refs/db.syldb", dest, nil))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "sketch-bytes", string(data))

	err = Fetch(ctx, store, "refs/missing.syldb", filepath.Join(dir, "missing.syldb"), nil)
	require.ErrorIs(t, err, ErrNotFound)

	err = Publish(ctx, store, filepath.Join(dir, "no-such-file"), "refs/x", nil)
	require.Error(t, err)
}

func TestFetchCached(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	cacheDir := filepath.Join(t.TempDir(), "cache")

	putString(t, store, "refs/db.syldb", "version-one")

	// First fetch downloads.
	local, err := FetchCached(ctx, store, "refs/db.syldb", cacheDir, nil)
	require.NoError(t, err)
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	require.Equal(t, "version-one", string(data))

	// Same size: the cached copy is reused, not re-downloaded. Tamper
	// with the local file to observe the reuse.
	require.NoError(t, os.WriteFile(local, []byte("tampered-xx"), 0o644))
	again, err := FetchCached(ctx, store, "refs/db.syldb", cacheDir, nil)
	require.NoError(t, err)
	require.Equal(t, local, again)
	data, err = os.ReadFile(again)
	require.NoError(t, err)
	require.Equal(t, "tampered-xx", string(data))

	// Changed size invalidates the cache.
	putString(t, store, "refs/db.syldb", "version-two-is-longer")
	fresh, err := FetchCached(ctx, store, "refs/db.syldb", cacheDir, nil)
	require.NoError(t, err)
	require.Equal(t, local, fresh)
	data, err = os.ReadFile(fresh)
	require.NoError(t, err)
	require.Equal(t, "version-two-is-longer", string(data))

	// Same basename under a different prefix gets its own cache slot.
	putString(t, store, "samples/db.syldb", "other")
	other, err := FetchCached(ctx, store, "samples/db.syldb", cacheDir, nil)
	require.NoError(t, err)
	assert.NotEqual(t, local, other)

	_, err = FetchCached(ctx, store, "refs/missing.syldb", cacheDir, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachedName(t *testing.T) {
	a := cachedName("refs/db.syldb")
	b := cachedName("samples/db.syldb")

	assert.Equal(t, a, cachedName("refs/db.syldb"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "-db.syldb"))
}
