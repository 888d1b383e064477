package ncx

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when the input ends inside a header or field.
	ErrTruncated = errors.New("truncated encoding")
	// ErrMalformed is returned for encodings that cannot be parsed.
	ErrMalformed = errors.New("malformed encoding")
	// ErrBadMagic is returned when the magic does not match the expected constant.
	ErrBadMagic = errors.New("bad magic")
	// ErrUnrecognized is returned when the magic matches no known index kind.
	ErrUnrecognized = errors.New("unrecognized collection index")
	// ErrUnsupportedVersion is returned for unknown format versions.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrChecksum is returned when the payload checksum does not match.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrCompression is returned for unknown codecs and corrupt compressed payloads.
	ErrCompression = errors.New("compression error")
)

// DecodeError describes where decoding failed.
// Offset is relative to the start of the file for header errors and to the
// start of the decompressed body otherwise.
type DecodeError struct {
	Offset int64
	Field  string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ncx: %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(off int, field string, err error) error {
	return &DecodeError{Offset: int64(off), Field: field, Err: err}
}

// IsFormat reports whether err is a decoding failure caused by the input bytes.
func IsFormat(err error) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return true
	}
	for _, target := range []error{ErrTruncated, ErrMalformed, ErrBadMagic, ErrUnrecognized, ErrUnsupportedVersion, ErrChecksum, ErrCompression} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
