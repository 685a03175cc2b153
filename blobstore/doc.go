// Package blobstore abstracts where sketch databases and sample
// sketches live. A Store is a flat namespace of named blobs with
// four operations: Open, Put, Delete, and List.
//
// Backends:
//
//   - LocalStore serves a directory tree and writes atomically.
//   - MemoryStore keeps blobs in process memory.
//   - blobstore/s3 talks to Amazon S3 and compatible services via the
//     AWS SDK.
//   - blobstore/minio talks to any S3-compatible endpoint via the
//     MinIO client, including self-hosted deployments.
//
// The helpers Fetch, Publish, and FetchCached move whole files between
// a Store and the local filesystem, honoring the process-wide IO
// throttle from the resource package. FetchCached keeps a local copy
// keyed by blob name and size, so repeated queries against a remote
// database download it once:
//
//	local, err := blobstore.FetchCached(ctx, store, "refs/gtdb.syldb", cacheDir, rc)
//	if err != nil {
//		return err
//	}
//	db, err := index.Open(local)
package blobstore
