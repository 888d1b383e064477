package collection

import (
	"context"
	"fmt"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/ncx"
)

// OpenIndexForCollection opens the index file of a collection for reading.
func OpenIndexForCollection(ctx context.Context, store blobstore.BlobStore, name, dir string) (blobstore.Blob, error) {
	p := IndexPath(name, dir)
	blob, err := store.Open(ctx, p)
	if err != nil {
		return nil, classify(name, p, err)
	}
	return blob, nil
}

// BuildFromIndex decodes an opened index file into an Index.
// Partition index files are not opened; the caller keeps ownership of blob.
func BuildFromIndex(ctx context.Context, store blobstore.BlobStore, name, dir string, blob blobstore.Blob, opts ...Option) (Index, error) {
	return build(ctx, store, name, dir, IndexPath(name, dir), blob, newOptions(opts))
}

// Open locates, decodes and closes the index file of a collection.
func Open(ctx context.Context, store blobstore.BlobStore, name, dir string, opts ...Option) (Index, error) {
	return openPath(ctx, store, name, dir, IndexPath(name, dir), newOptions(opts))
}

func openPath(ctx context.Context, store blobstore.BlobStore, name, dir, p string, o *options) (Index, error) {
	blob, err := store.Open(ctx, p)
	if err != nil {
		return nil, classify(name, p, err)
	}
	defer func() { _ = blob.Close() }()

	return build(ctx, store, name, dir, p, blob, o)
}

func build(ctx context.Context, store blobstore.BlobStore, name, dir, p string, blob blobstore.Blob, o *options) (Index, error) {
	c, err := readCollection(ctx, blob, o.limiter)
	if err != nil {
		return nil, classify(name, p, err)
	}

	switch c.Kind {
	case ncx.KindBase:
		return newBase(name, dir, p, c), nil
	case ncx.KindPartition:
		return newPartitioned(name, dir, p, store, c, o)
	default:
		return nil, newError(KindFormat, name, p, ncx.ErrUnrecognized.Error(), nil)
	}
}

// readCollection reads the header, then the payload it declares.
func readCollection(ctx context.Context, blob blobstore.Blob, limiter Limiter) (*ncx.Collection, error) {
	size := blob.Size()
	if size < ncx.MagicLen {
		return nil, &ncx.DecodeError{Offset: size, Field: "magic", Err: ncx.ErrTruncated}
	}

	hdr := make([]byte, min(size, ncx.HeaderSize))
	if err := limiter.WaitIO(ctx, len(hdr)); err != nil {
		return nil, err
	}
	if err := blobstore.ReadFull(ctx, blob, hdr, 0); err != nil {
		return nil, err
	}
	kind, err := ncx.Sniff(hdr)
	if err != nil {
		return nil, err
	}
	h, err := ncx.DecodeHeader(hdr, kind.Magic())
	if err != nil {
		return nil, err
	}

	if end := ncx.HeaderSize + int64(h.PayloadLen); size < end {
		return nil, &ncx.DecodeError{
			Offset: size,
			Field:  "payload",
			Err:    fmt.Errorf("%w: file has %d bytes, header declares %d", ncx.ErrTruncated, size, end),
		}
	}
	payload := make([]byte, h.PayloadLen)
	if err := limiter.WaitIO(ctx, len(payload)); err != nil {
		return nil, err
	}
	if err := blobstore.ReadFull(ctx, blob, payload, ncx.HeaderSize); err != nil {
		return nil, err
	}
	return ncx.DecodeBody(h, payload)
}
