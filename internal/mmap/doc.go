// Package mmap provides read-only memory-mapped file access.
//
// Index files are read once per open and then decoded, so mapping them
// avoids an extra copy through kernel buffers and lets the OS share pages
// between processes serving the same archive.
//
//	m, err := mmap.Open("gfs_0.5deg.ncx")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) via golang.org/x/sys/unix
//   - Windows: CreateFileMapping/MapViewOfFile
//
// Empty files are not mapped; Bytes returns nil for them.
package mmap
