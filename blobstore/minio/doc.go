// Package minio provides a blobstore.Store using the MinIO client.
//
// MinIO is a high-performance, S3-compatible object storage system.
// This package uses the official MinIO Go client for compatibility
// with MinIO itself and other S3-compatible systems like Ceph,
// SeaweedFS, and Garage, without pulling in the AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "sketch-bucket", "refs/")
//	local, err := blobstore.FetchCached(ctx, store, "gtdb.syldb", cacheDir, nil)
//
// For HTTPS endpoints set Secure: true and, if needed, Region in the
// client options. NewFromEnv covers the common case of credentials
// arriving through the environment.
package minio
