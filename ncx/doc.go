// Package ncx implements the binary collection index format.
//
// An index file is a fixed 40-byte little-endian header followed by a
// payload encoded in protobuf wire format:
//
//	magic      [20]byte  "Grib2CollectionIndex" or "Grib2Partition2Index"
//	version    uint32
//	flags      uint32    bits 0..7: compression
//	rawLength  uint32    payload length after decompression
//	payloadLen uint32    stored payload length
//	checksum   uint32    CRC32C of the stored payload
//
// The magic selects the schema. Partition indexes carry an extension block
// (partitions, run2part, per-variable contributions) in field numbers that a
// base index never uses. Unknown fields are skipped, so files written by
// newer writers stay readable, and absent extension fields decode to zero
// values.
//
// Decoding is a pure transform over an in-memory buffer. Decoded values are
// plain data and are never mutated by the packages that consume them.
package ncx
