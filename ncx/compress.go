package ncx

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the payload codec.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio, good for archived indexes).
	CompressionZSTD Compression = 2
)

func (c Compression) valid() bool {
	return c <= CompressionZSTD
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression parses the names returned by String.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("%w: unknown codec %q", ErrCompression, s)
	}
}

// Upper bounds on raw/stored size. LZ4 blocks cannot expand past 255:1;
// the zstd bound is far above what record tables reach.
const (
	maxRatioLZ4  = 255
	maxRatioZSTD = 1 << 12
)

// maxRawLen is the largest raw length a stored payload of storedLen bytes
// may declare for codec c.
func maxRawLen(c Compression, storedLen int) uint64 {
	switch c {
	case CompressionLZ4:
		return uint64(storedLen) * maxRatioLZ4
	case CompressionZSTD:
		return uint64(storedLen) * maxRatioZSTD
	default:
		return uint64(storedLen)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compress returns the stored payload and the codec actually used.
// Payloads that a codec cannot shrink are stored uncompressed.
func compress(raw []byte, c Compression) ([]byte, Compression, error) {
	if len(raw) == 0 {
		return raw, CompressionNone, nil
	}
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrCompression, err)
		}
		if n == 0 || n >= len(raw) {
			return raw, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		out := enc.EncodeAll(raw, nil)
		if len(out) >= len(raw) || uint64(len(raw)) > maxRawLen(CompressionZSTD, len(out)) {
			return raw, CompressionNone, nil
		}
		return out, CompressionZSTD, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown codec %d", ErrCompression, c)
	}
}

func decompress(stored []byte, c Compression, rawLen uint32) ([]byte, error) {
	if c != CompressionNone && uint64(rawLen) > maxRawLen(c, len(stored)) {
		return nil, fmt.Errorf("%w: %s: declared raw length %d exceeds %d for %d stored bytes",
			ErrCompression, c, rawLen, maxRawLen(c, len(stored)), len(stored))
	}
	switch c {
	case CompressionNone:
		return stored, nil
	case CompressionLZ4:
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCompression, err)
		}
		return raw[:n], nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		raw, err := dec.DecodeAll(stored, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCompression, err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrCompression, c)
	}
}
