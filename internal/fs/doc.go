// Package fs provides the filesystem abstraction behind the local blob store.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with write/sync capabilities
//   - [FileSystem]: open, stat, rename, remove, list, mkdir
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects errors into selected operations
//
// Production code uses fs.Default:
//
//	info, err := fs.Default.Stat(path)
//
// Tests inject [FaultyFS] to simulate failing disks:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.Fail(fs.OpStat, "gfs_0.5deg.ncx", errIO)
//
// Operations take no context.Context: local syscalls are not interruptible.
// Slow backends (S3, MinIO) live behind blobstore.BlobStore instead.
package fs
