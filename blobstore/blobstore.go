package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/hupe1980/tagseek/persistence"
	"github.com/hupe1980/tagseek/resource"
)

// ErrNotFound is returned by Store.Open when the named blob does not
// exist. It aliases os.ErrNotExist so errors.Is works uniformly across
// local and remote backends.
var ErrNotFound = os.ErrNotExist

// Blob is an open, readable object. Close releases the underlying
// stream or connection.
type Blob interface {
	io.ReadCloser

	// Size returns the blob length in bytes, or -1 if unknown.
	Size() int64
}

// Store is a flat namespace of named blobs. Names use forward slashes
// regardless of platform. Implementations must be safe for concurrent
// use.
type Store interface {
	// Open returns a reader for the named blob. The caller must close
	// the returned Blob. Returns ErrNotFound if no such blob exists.
	Open(ctx context.Context, name string) (Blob, error)

	// Put writes the blob under name, replacing any previous content.
	// size is the number of bytes r will yield, or -1 if unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Delete removes the named blob. Deleting a missing blob is not an
	// error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix, sorted
	// lexicographically.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Fetch downloads the named blob to dest. The file is written
// atomically: a temporary file in the destination directory is renamed
// over dest only after the full content has been received. Transfers
// are throttled through rc when an IO limit is configured; rc may be
// nil.
func Fetch(ctx context.Context, s Store, name, dest string, rc *resource.Controller) error {
	blob, err := s.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("open blob %q: %w", name, err)
	}
	defer blob.Close()

	r := resource.NewRateLimitedReader(ctx, blob, rc)

	if err := persistence.SaveToFile(dest, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	}); err != nil {
		return fmt.Errorf("fetch blob %q: %w", name, err)
	}
	return nil
}

// Publish uploads the local file src to the store under name.
// Transfers are throttled through rc when an IO limit is configured;
// rc may be nil.
func Publish(ctx context.Context, s Store, src, name string, rc *resource.Controller) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source %q: %w", src, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat source %q: %w", src, err)
	}

	r := resource.NewRateLimitedReader(ctx, f, rc)

	if err := s.Put(ctx, name, r, fi.Size()); err != nil {
		return fmt.Errorf("publish blob %q: %w", name, err)
	}
	return nil
}

// FetchCached downloads the named blob into cacheDir and returns the
// local path. A previous download is reused when its size still
// matches the remote blob, so repeated queries against the same
// database hit the network once. Remote blobs of unknown size are
// always re-fetched.
func FetchCached(ctx context.Context, s Store, name, cacheDir string, rc *resource.Controller) (string, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	local := filepath.Join(cacheDir, cachedName(name))

	blob, err := s.Open(ctx, name)
	if err != nil {
		return "", fmt.Errorf("open blob %q: %w", name, err)
	}

	if fi, err := os.Stat(local); err == nil && blob.Size() >= 0 && fi.Size() == blob.Size() {
		blob.Close()
		return local, nil
	}

	r := resource.NewRateLimitedReader(ctx, blob, rc)

	err = persistence.SaveToFile(local, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	blob.Close()
	if err != nil {
		return "", fmt.Errorf("fetch blob %q: %w", name, err)
	}
	return local, nil
}

// cachedName maps a blob name to a flat cache filename. The checksum
// prefix keeps same-named blobs from different prefixes apart.
func cachedName(name string) string {
	return fmt.Sprintf("%08x-%s", persistence.Checksum([]byte(name)), path.Base(name))
}
