// Package conv provides safe integer type conversion utilities.
//
// The index codec uses them where untrusted varints become fixed-width
// fields (record file numbers and lengths) and where in-memory lengths are
// written into the 32-bit header fields.
package conv
