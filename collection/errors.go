package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/ncx"
)

var (
	// ErrNotFound is matched by errors for absent index files, unknown
	// groups or variables, and coordinates no partition covers.
	ErrNotFound = errors.New("not found")
	// ErrFormat is matched by errors for corrupt or inconsistent indexes.
	ErrFormat = errors.New("format error")
	// ErrIO is matched by errors from the underlying store.
	ErrIO = errors.New("i/o error")
	// ErrMissing is returned when the index records a coordinate as
	// expected but absent.
	ErrMissing = errors.New("record known missing")
	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("collection closed")
)

// ErrorKind classifies an Error. Kinds are bit flags; an error may carry
// more than one.
type ErrorKind uint8

const (
	KindNotFound ErrorKind = 1 << iota
	KindFormat
	KindIO
	KindMissing
	KindClosed
)

var kindSentinels = []struct {
	kind ErrorKind
	err  error
}{
	{KindNotFound, ErrNotFound},
	{KindFormat, ErrFormat},
	{KindIO, ErrIO},
	{KindMissing, ErrMissing},
	{KindClosed, ErrClosed},
}

// Error is returned by every operation in this package.
type Error struct {
	Kind       ErrorKind
	Collection string
	Path       string
	// Offset is the byte offset of a decoding failure, or -1.
	Offset int64
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Msg)
	if e.Collection != "" {
		fmt.Fprintf(&sb, ": collection %q", e.Collection)
	}
	if e.Path != "" {
		fmt.Fprintf(&sb, " (%s)", e.Path)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of every kind the error carries.
func (e *Error) Is(target error) bool {
	for _, ks := range kindSentinels {
		if e.Kind&ks.kind != 0 && target == ks.err {
			return true
		}
	}
	return false
}

func newError(kind ErrorKind, name, path, msg string, err error) *Error {
	return &Error{Kind: kind, Collection: name, Path: path, Offset: -1, Msg: msg, Err: err}
}

// classify wraps a failure to open or decode an index file.
func classify(name, path string, err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		return newError(KindNotFound, name, path, "index file not found", err)
	case ncx.IsFormat(err):
		msg := "decoding index failed"
		if errors.Is(err, ncx.ErrUnrecognized) {
			msg = ncx.ErrUnrecognized.Error()
		}
		e := newError(KindFormat, name, path, msg, err)
		var de *ncx.DecodeError
		if errors.As(err, &de) {
			e.Offset = de.Offset
		}
		return e
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(KindIO, name, path, "reading index interrupted", err)
	default:
		return newError(KindIO, name, path, "reading index failed", err)
	}
}

// isUnusable reports whether err marks a partition as unusable rather than
// being a transient store failure.
func isUnusable(err error) bool {
	return errors.Is(err, ErrFormat) || errors.Is(err, ErrNotFound)
}
