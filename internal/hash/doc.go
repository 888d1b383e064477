// Package hash provides the checksum used by the index file format.
//
// Index payloads are protected with CRC32-Castagnoli (CRC32C). Go's crc32
// package uses SSE4.2 / ARM CRC instructions when available, so verifying
// a multi-megabyte partition index costs well under a millisecond.
//
//	checksum := hash.CRC32C(payload)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(header)
//	h.Write(payload)
//	checksum := h.Sum32()
package hash
