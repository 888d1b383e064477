// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("grib/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	idx, err := gribidx.Open(ctx, gribidx.Remote(store), "gfs", "gfs_0.5deg")
//
// # Features
//
//   - Range reads for partial index fetches
//   - Multipart uploads for large indexes
//   - CRC32C checksums on Put
//   - LastModified based Stat for stale partition detection
package s3
