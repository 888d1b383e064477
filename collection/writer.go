package collection

import (
	"context"

	"github.com/hupe1980/gribidx/blobstore"
	"github.com/hupe1980/gribidx/ncx"
)

// Write encodes c and stores it as the index file of the named collection.
func Write(ctx context.Context, store blobstore.BlobStore, name, dir string, c *ncx.Collection, compression ncx.Compression) error {
	p := IndexPath(name, dir)
	b, err := ncx.Encode(c, compression)
	if err != nil {
		return newError(KindFormat, name, p, "encoding index failed", err)
	}
	if err := store.Put(ctx, p, b); err != nil {
		return newError(KindIO, name, p, "writing index failed", err)
	}
	return nil
}
