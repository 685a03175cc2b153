package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/tagseek/blobstore"
	minioblob "github.com/hupe1980/tagseek/blobstore/minio"
	s3blob "github.com/hupe1980/tagseek/blobstore/s3"
)

// isRemote reports whether the argument names a blob in object
// storage rather than a local file.
func isRemote(arg string) bool {
	return strings.HasPrefix(arg, "s3://") ||
		strings.HasPrefix(arg, "minio://") ||
		strings.HasPrefix(arg, "minios://")
}

// openStore resolves a remote URL to a blobstore and the blob name
// inside it. Supported schemes: s3://bucket/key for AWS S3 and
// minio://host/bucket/key (minios:// for TLS) for any S3-compatible
// endpoint.
func openStore(ctx context.Context, arg string) (blobstore.Store, string, error) {
	u, err := url.Parse(arg)
	if err != nil {
		return nil, "", fmt.Errorf("parse %q: %w", arg, err)
	}
	name := strings.TrimPrefix(u.Path, "/")

	switch u.Scheme {
	case "s3":
		if u.Host == "" || name == "" {
			return nil, "", fmt.Errorf("%q: want s3://bucket/key", arg)
		}
		store, err := s3blob.NewFromDefaultConfig(ctx, u.Host, "")
		if err != nil {
			return nil, "", err
		}
		return store, name, nil

	case "minio", "minios":
		bucket, key, ok := strings.Cut(name, "/")
		if u.Host == "" || !ok || key == "" {
			return nil, "", fmt.Errorf("%q: want %s://host/bucket/key", arg, u.Scheme)
		}
		store, err := minioblob.NewFromEnv(u.Host, bucket, "", u.Scheme == "minios")
		if err != nil {
			return nil, "", err
		}
		return store, key, nil

	default:
		return nil, "", fmt.Errorf("unsupported scheme %q in %q", u.Scheme, arg)
	}
}

// resolveInput returns a local path for the argument, downloading
// remote blobs into the user cache directory. Cached downloads are
// reused while their size matches the remote blob.
func resolveInput(ctx context.Context, arg string) (string, error) {
	if !isRemote(arg) {
		return arg, nil
	}
	store, name, err := openStore(ctx, arg)
	if err != nil {
		return "", err
	}
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return blobstore.FetchCached(ctx, store, name, dir, nil)
}

// publishOutput uploads the local file to the remote URL.
func publishOutput(ctx context.Context, local, arg string) error {
	store, name, err := openStore(ctx, arg)
	if err != nil {
		return err
	}
	return blobstore.Publish(ctx, store, local, name, nil)
}

func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(base, "tagseek"), nil
}
