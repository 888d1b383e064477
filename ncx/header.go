package ncx

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// MagicBase identifies a base collection index.
	MagicBase = "Grib2CollectionIndex"
	// MagicPartition identifies a partition collection index.
	MagicPartition = "Grib2Partition2Index"
	// MagicLen is the length of both magic constants.
	MagicLen = 20

	// Version is the current format version.
	Version = 1

	// HeaderSize is the fixed header length in bytes.
	HeaderSize = MagicLen + 5*4
)

// Kind distinguishes base and partition indexes.
type Kind uint8

const (
	KindBase Kind = iota + 1
	KindPartition
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindPartition:
		return "partition"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Magic returns the magic constant for k.
func (k Kind) Magic() string {
	if k == KindPartition {
		return MagicPartition
	}
	return MagicBase
}

// Header is the fixed-size file header.
type Header struct {
	Kind        Kind
	Version     uint32
	Compression Compression
	RawLen      uint32
	PayloadLen  uint32
	Checksum    uint32
}

// Sniff returns the index kind named by the leading magic.
func Sniff(b []byte) (Kind, error) {
	if len(b) < MagicLen {
		return 0, decodeErr(len(b), "magic", ErrTruncated)
	}
	switch string(b[:MagicLen]) {
	case MagicBase:
		return KindBase, nil
	case MagicPartition:
		return KindPartition, nil
	default:
		return 0, decodeErr(0, "magic", ErrUnrecognized)
	}
}

// DecodeHeader decodes the header and checks it carries the given magic.
func DecodeHeader(b []byte, magic string) (Header, error) {
	if len(b) < MagicLen {
		return Header{}, decodeErr(len(b), "magic", ErrTruncated)
	}
	if !bytes.Equal(b[:MagicLen], []byte(magic)) {
		return Header{}, decodeErr(0, "magic", fmt.Errorf("%w: got %q, want %q", ErrBadMagic, b[:MagicLen], magic))
	}
	if len(b) < HeaderSize {
		return Header{}, decodeErr(len(b), "header", ErrTruncated)
	}

	h := Header{Kind: KindBase}
	if magic == MagicPartition {
		h.Kind = KindPartition
	}

	le := binary.LittleEndian
	h.Version = le.Uint32(b[20:])
	flags := le.Uint32(b[24:])
	h.RawLen = le.Uint32(b[28:])
	h.PayloadLen = le.Uint32(b[32:])
	h.Checksum = le.Uint32(b[36:])

	if h.Version != Version {
		return Header{}, decodeErr(20, "version", fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version))
	}
	h.Compression = Compression(flags & 0xff)
	if !h.Compression.valid() {
		return Header{}, decodeErr(24, "flags", fmt.Errorf("%w: unknown codec %d", ErrCompression, h.Compression))
	}
	return h, nil
}

// AppendTo appends the encoded header to dst.
func (h Header) AppendTo(dst []byte) []byte {
	dst = append(dst, h.Kind.Magic()...)
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, h.Version)
	dst = le.AppendUint32(dst, uint32(h.Compression))
	dst = le.AppendUint32(dst, h.RawLen)
	dst = le.AppendUint32(dst, h.PayloadLen)
	dst = le.AppendUint32(dst, h.Checksum)
	return dst
}
