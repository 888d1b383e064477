// Package blobstore provides storage abstraction for index files.
//
// BlobStore is the interface for reading and writing immutable blobs.
// Collection and partition indexes are addressed by slash-separated names
// relative to the store root. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap reads and atomic writes
//   - MemoryStore: In-memory store for tests
//   - CachingStore: Block cache in front of any store
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible endpoints
//
// Stores that implement Stater report modification times, which are used
// to detect partitions rewritten after their parent collection.
package blobstore
