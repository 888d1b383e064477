package ncx

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/gribidx/internal/conv"
	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded tag/value pair.
type field struct {
	num protowire.Number
	typ protowire.Type
	val []byte
	off int
}

func wireErr(off int, name string, code int) error {
	perr := protowire.ParseError(code)
	kind := ErrMalformed
	if errors.Is(perr, io.ErrUnexpectedEOF) {
		kind = ErrTruncated
	}
	return decodeErr(off, name, fmt.Errorf("%w: %w", kind, perr))
}

// walk calls fn for every field of the message encoded in b.
// base is the offset of b within the body.
func walk(b []byte, base int, fn func(f field) error) error {
	pos := 0
	for pos < len(b) {
		num, typ, n := protowire.ConsumeTag(b[pos:])
		if n < 0 {
			return wireErr(base+pos, "tag", n)
		}
		pos += n
		m := protowire.ConsumeFieldValue(num, typ, b[pos:])
		if m < 0 {
			return wireErr(base+pos, fmt.Sprintf("field %d", num), m)
		}
		if err := fn(field{num: num, typ: typ, val: b[pos : pos+m], off: base + pos}); err != nil {
			return err
		}
		pos += m
	}
	return nil
}

func (f field) want(typ protowire.Type, name string) error {
	if f.typ != typ {
		return decodeErr(f.off, name, fmt.Errorf("%w: wire type %d, want %d", ErrMalformed, f.typ, typ))
	}
	return nil
}

func (f field) varint(name string) (uint64, error) {
	if err := f.want(protowire.VarintType, name); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(f.val)
	if n < 0 {
		return 0, wireErr(f.off, name, n)
	}
	return v, nil
}

func (f field) varint32(name string) (uint32, error) {
	v, err := f.varint(name)
	if err != nil {
		return 0, err
	}
	u, err := conv.Uint64ToUint32(v)
	if err != nil {
		return 0, decodeErr(f.off, name, fmt.Errorf("%w: %w", ErrMalformed, err))
	}
	return u, nil
}

func (f field) boolean(name string) (bool, error) {
	v, err := f.varint(name)
	return v != 0, err
}

func (f field) fixedFloat(name string) (float32, error) {
	if err := f.want(protowire.Fixed32Type, name); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed32(f.val)
	if n < 0 {
		return 0, wireErr(f.off, name, n)
	}
	return math.Float32frombits(v), nil
}

// bytes returns the payload of a length-delimited field and its offset.
func (f field) delimited(name string) ([]byte, int, error) {
	if err := f.want(protowire.BytesType, name); err != nil {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(f.val)
	if n < 0 {
		return nil, 0, wireErr(f.off, name, n)
	}
	return v, f.off + (len(f.val) - len(v)), nil
}

func (f field) text(name string) (string, error) {
	b, _, err := f.delimited(name)
	return string(b), err
}

// varints decodes a packed varint field. A single unpacked value is accepted.
func (f field) varints(name string, fn func(v uint64) error) error {
	if f.typ == protowire.VarintType {
		v, err := f.varint(name)
		if err != nil {
			return err
		}
		return fn(v)
	}
	b, off, err := f.delimited(name)
	if err != nil {
		return err
	}
	for pos := 0; pos < len(b); {
		v, n := protowire.ConsumeVarint(b[pos:])
		if n < 0 {
			return wireErr(off+pos, name, n)
		}
		if err := fn(v); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

func (f field) uint32s(name string, dst []uint32) ([]uint32, error) {
	err := f.varints(name, func(v uint64) error {
		u, err := conv.Uint64ToUint32(v)
		if err != nil {
			return decodeErr(f.off, name, fmt.Errorf("%w: %w", ErrMalformed, err))
		}
		dst = append(dst, u)
		return nil
	})
	return dst, err
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendUint(b, num, 1)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendFloat32(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendPacked(b []byte, num protowire.Number, vs []uint64) []byte {
	if len(vs) == 0 {
		return b
	}
	var inner []byte
	for _, v := range vs {
		inner = protowire.AppendVarint(inner, v)
	}
	return appendMessage(b, num, inner)
}

func appendPacked32(b []byte, num protowire.Number, vs []uint32) []byte {
	if len(vs) == 0 {
		return b
	}
	wide := make([]uint64, len(vs))
	for i, v := range vs {
		wide[i] = uint64(v)
	}
	return appendPacked(b, num, wide)
}
