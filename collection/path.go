package collection

import (
	"path"

	"github.com/hupe1980/gribidx/ncx"
)

// IndexExt is the index file extension.
const IndexExt = ".ncx"

// IndexFileName returns the index file name of a collection.
func IndexFileName(name string) string {
	return name + IndexExt
}

// IndexPath returns the store path of a collection's index file.
func IndexPath(name, dir string) string {
	return path.Join(dir, IndexFileName(name))
}

// PartitionPath returns the store path of a partition's index file.
// A partition without a file name uses the index name derived from its name.
func PartitionPath(p ncx.Partition) string {
	filename := p.Filename
	if filename == "" {
		filename = IndexFileName(p.Name)
	}
	return path.Join(p.Directory, filename)
}
